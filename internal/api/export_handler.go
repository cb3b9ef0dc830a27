package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resumebuilder/internal/api/middleware"
	"resumebuilder/internal/errcode"
	"resumebuilder/internal/export"
	"resumebuilder/internal/storage"
)

// Presigner 由支持限时直链的存储实现。
type Presigner interface {
	PresignedURL(ctx context.Context, key string, ttl time.Duration, filename string) (string, error)
}

// ExportHandler 列出并下载当前账号导出的 PDF。
type ExportHandler struct {
	sink    storage.Sink
	linkTTL time.Duration
}

// NewExportHandler 构造导出文件处理器。
func NewExportHandler(sink storage.Sink, linkTTL time.Duration) *ExportHandler {
	return &ExportHandler{sink: sink, linkTTL: linkTTL}
}

// List 返回账号名下的导出文件。
func (h *ExportHandler) List(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		Unauthorized(c)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	objects, err := h.sink.List(c.Request.Context(), export.AccountPrefix(accountID), limit)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": objects})
}

// Download 以附件形式回传 PDF。
func (h *ExportHandler) Download(c *gin.Context) {
	key, ok := h.ownedKey(c)
	if !ok {
		return
	}

	body, err := h.sink.Get(c.Request.Context(), key)
	if err != nil {
		Fail(c, err)
		return
	}
	defer body.Close()

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		middleware.LoggerFromContext(c).Warn("stream export failed", slog.String("object_key", key), slog.Any("error", err))
	}
}

// Link 返回下载地址。存储支持预签名时返回直链，否则指向 Download 接口。
func (h *ExportHandler) Link(c *gin.Context) {
	key, ok := h.ownedKey(c)
	if !ok {
		return
	}

	presigner, ok := h.sink.(Presigner)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"url": "/v1/exports/download?key=" + url.QueryEscape(key)})
		return
	}
	link, err := presigner.PresignedURL(c.Request.Context(), key, h.linkTTL, path.Base(key))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": link, "expires_in": int(h.linkTTL.Seconds())})
}

// Delete 删除导出文件，文件不存在时同样返回成功。
func (h *ExportHandler) Delete(c *gin.Context) {
	key, ok := h.ownedKey(c)
	if !ok {
		return
	}
	if err := h.sink.Delete(c.Request.Context(), key); err != nil {
		Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ownedKey 只接受落在当前账号前缀下的对象键，其余一律按不存在处理。
func (h *ExportHandler) ownedKey(c *gin.Context) (string, bool) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		Unauthorized(c)
		return "", false
	}
	key, ok := storage.CleanKey(c.Query("key"))
	if !ok {
		Fail(c, fmt.Errorf("object key: %w", errcode.ErrValidation))
		return "", false
	}
	if !strings.HasPrefix(key, export.AccountPrefix(accountID)) {
		Fail(c, fmt.Errorf("object %s: %w", key, errcode.ErrNotFound))
		return "", false
	}
	return key, true
}
