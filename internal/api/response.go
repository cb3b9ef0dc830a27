package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumebuilder/internal/api/middleware"
	"resumebuilder/internal/errcode"
	"resumebuilder/internal/importer"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func Unauthorized(c *gin.Context)           { Error(c, http.StatusUnauthorized, "unauthorized") }
func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }

// Fail 按错误类型回写响应。系统错误只记录日志，不把内部信息暴露给客户端。
func Fail(c *gin.Context, err error) {
	status := errcode.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		middleware.LoggerFromContext(c).Error("request failed", "error", err)
		_ = c.Error(err)
		Error(c, status, http.StatusText(status))
		return
	}

	var verr *importer.ValidationError
	if errors.As(err, &verr) {
		c.JSON(status, gin.H{"error": verr.Error(), "fields": verr.Errors})
		return
	}
	Error(c, status, err.Error())
}
