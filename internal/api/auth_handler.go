package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resumebuilder/internal/api/middleware"
	"resumebuilder/internal/auth"
	"resumebuilder/internal/errcode"
	"resumebuilder/internal/session"
)

// AuthHandler 处理注册、登录与退出，并为当前账号签发访问令牌。
type AuthHandler struct {
	sessions *session.Manager
	tokens   *auth.TokenService
	logger   *slog.Logger
}

// NewAuthHandler 构造认证处理器。
func NewAuthHandler(sessions *session.Manager, tokens *auth.TokenService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, tokens: tokens, logger: logger}
}

type signupRequest struct {
	Name   string `json:"name" binding:"required,max=128"`
	Email  string `json:"email" binding:"required,max=254"`
	Secret string `json:"secret" binding:"required,max=1024"`
}

type loginRequest struct {
	Email  string `json:"email" binding:"required"`
	Secret string `json:"secret" binding:"required"`
}

type tokenResponse struct {
	AccessToken string        `json:"access_token"`
	ExpiresAt   time.Time     `json:"expires_at"`
	Account     *auth.Account `json:"account"`
}

// Signup 创建账号并直接登录。
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	account, err := h.sessions.Signup(c.Request.Context(), session.SignupInput{
		Name:   req.Name,
		Email:  req.Email,
		Secret: req.Secret,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	h.respondWithToken(c, http.StatusCreated, account)
}

// Login 校验凭据并切换当前账号。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	account, err := h.sessions.Login(c.Request.Context(), session.LoginInput{
		Email:  req.Email,
		Secret: req.Secret,
	})
	if err != nil {
		if errors.Is(err, errcode.ErrNotFound) {
			middleware.LoggerFromContext(c).Info("login rejected")
			Error(c, http.StatusUnauthorized, "invalid credentials")
			return
		}
		Fail(c, err)
		return
	}
	h.respondWithToken(c, http.StatusOK, account)
}

// Logout 保存并关闭编辑器中的简历，然后清除当前账号。
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Request.Context()); err != nil {
		Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me 返回当前账号。
func (h *AuthHandler) Me(c *gin.Context) {
	account, ok := h.sessions.CurrentAccount()
	if !ok {
		Unauthorized(c)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, account *auth.Account) {
	token, expiresAt, err := h.tokens.Issue(account.ID)
	if err != nil {
		h.logger.Error("issue access token failed", slog.String("account_id", account.ID), slog.Any("error", err))
		Internal(c, "failed to issue token")
		return
	}
	c.JSON(status, tokenResponse{AccessToken: token, ExpiresAt: expiresAt, Account: account})
}
