package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"resumebuilder/internal/api/middleware"
	"resumebuilder/internal/auth"
	"resumebuilder/internal/notify"
)

const (
	wsAuthTimeout  = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// WsHandler 负责 WebSocket 鉴权，并把账号的导出通知转发给客户端。
type WsHandler struct {
	subscriber     notify.Subscriber
	tokens         *auth.TokenService
	sessions       middleware.SessionChecker
	logger         *slog.Logger
	upgrader       websocket.Upgrader
	allowedOrigins []string
}

// NewWsHandler 构造 WebSocket 处理器。
func NewWsHandler(subscriber notify.Subscriber, tokens *auth.TokenService, sessions middleware.SessionChecker, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	h := &WsHandler{
		subscriber:     subscriber,
		tokens:         tokens,
		sessions:       sessions,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

// checkOrigin 未配置白名单时只允许同源连接。
func (h *WsHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(h.allowedOrigins) > 0 {
		return slices.Contains(h.allowedOrigins, origin)
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// HandleConnection 升级连接，完成首条消息鉴权后转发该账号的通知，直到任一方断开。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	log := h.logger.With(
		slog.String("client_ip", c.ClientIP()),
		slog.String("correlation_id", middleware.GetCorrelationID(c)),
	)

	accountID, err := h.authenticate(conn)
	if err != nil {
		log.Warn("websocket authentication failed", slog.Any("error", err))
		return
	}
	log = log.With(slog.String("account_id", accountID))
	log.Info("websocket authenticated")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	messages, unsubscribe, err := h.subscriber.Subscribe(ctx, accountID)
	if err != nil {
		writeClose(conn, websocket.CloseInternalServerErr, "subscribe failed")
		log.Error("subscribe notifications failed", slog.Any("error", err))
		return
	}
	defer unsubscribe()

	errCh := make(chan error, 2)
	go drain(conn, errCh)
	go h.forward(ctx, conn, accountID, messages, errCh)

	select {
	case <-ctx.Done():
		log.Info("websocket connection closed")
	case err := <-errCh:
		log.Info("websocket connection closed", slog.Any("error", err))
	}
}

// authenticate 读取首条消息并校验令牌，超时或失败时以 policy violation 关闭连接。
func (h *WsHandler) authenticate(conn *websocket.Conn) (string, error) {
	if err := conn.SetReadDeadline(time.Now().Add(wsAuthTimeout)); err != nil {
		return "", fmt.Errorf("set auth deadline: %w", err)
	}
	var msg wsAuthMessage
	if err := conn.ReadJSON(&msg); err != nil {
		writeClose(conn, websocket.ClosePolicyViolation, "invalid auth payload")
		return "", fmt.Errorf("read auth message: %w", err)
	}
	if msg.Type != "auth" || msg.Token == "" {
		writeClose(conn, websocket.ClosePolicyViolation, "auth required")
		return "", errors.New("invalid auth message")
	}

	claims, err := h.tokens.Validate(msg.Token)
	if err != nil {
		writeClose(conn, websocket.ClosePolicyViolation, "unauthorized")
		return "", fmt.Errorf("validate token: %w", err)
	}
	if current, ok := h.sessions.CurrentAccount(); !ok || current.ID != claims.AccountID {
		writeClose(conn, websocket.ClosePolicyViolation, "session ended")
		return "", fmt.Errorf("account %s is not signed in", claims.AccountID)
	}

	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return "", fmt.Errorf("clear auth deadline: %w", err)
	}
	return claims.AccountID, nil
}

// drain 丢弃客户端后续消息，只用来发现断开。
func drain(conn *websocket.Conn, errCh chan<- error) {
	for {
		if _, _, err := conn.NextReader(); err != nil {
			errCh <- fmt.Errorf("read message: %w", err)
			return
		}
	}
}

// forward 在每次写出前确认会话仍属于 accountID，登出或切换账号后以 policy violation 关闭。
func (h *WsHandler) forward(ctx context.Context, conn *websocket.Conn, accountID string, messages <-chan []byte, errCh chan<- error) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	signedIn := func() bool {
		if current, ok := h.sessions.CurrentAccount(); ok && current.ID == accountID {
			return true
		}
		writeClose(conn, websocket.ClosePolicyViolation, "session ended")
		errCh <- fmt.Errorf("account %s signed out", accountID)
		return false
	}

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-messages:
			if !ok {
				errCh <- errors.New("notification channel closed")
				return
			}
			if !signedIn() {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				errCh <- fmt.Errorf("write message: %w", err)
				return
			}
		case <-ticker.C:
			if !signedIn() {
				return
			}
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				errCh <- fmt.Errorf("write ping: %w", err)
				return
			}
		}
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}
