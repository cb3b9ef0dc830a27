package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resumebuilder/internal/auth"
)

const accountIDKey = "accountID"

// SessionChecker 报告当前登录的账号，令牌只对该账号有效。
type SessionChecker interface {
	CurrentAccount() (*auth.Account, bool)
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// BearerToken 从 Authorization 头中取出令牌。
func BearerToken(c *gin.Context) (string, bool) {
	parts := strings.Fields(c.GetHeader("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware 校验访问令牌，并要求令牌所属账号就是当前会话的账号。
func AuthMiddleware(tokens *auth.TokenService, sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, ok := BearerToken(c)
		if !ok {
			abortUnauthorized(c)
			return
		}

		claims, err := tokens.Validate(rawToken)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		current, ok := sessions.CurrentAccount()
		if !ok || current.ID != claims.AccountID {
			abortUnauthorized(c)
			return
		}

		c.Set(accountIDKey, claims.AccountID)
		c.Next()
	}
}

// AccountID 返回鉴权中间件注入的账号 ID。
func AccountID(c *gin.Context) (string, bool) {
	value, ok := c.Get(accountIDKey)
	if !ok {
		return "", false
	}
	id, ok := value.(string)
	return id, ok && id != ""
}
