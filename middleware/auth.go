package middleware

import (
	"context"
	"strings"

	"scamazon_go/config"
	"scamazon_go/utils"

	"github.com/gin-gonic/gin"
)

// 上下文中的身份键
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextRole     = "role"
	ContextToken    = "token"
)

// Authenticator 校验token（含黑名单检查）
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*config.Claims, error)
}

// AuthMiddleware 认证中间件：Authorization: Bearer <token>，websocket可用 ?token=
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			utils.Unauthorized(c, "missing token")
			c.Abort()
			return
		}

		claims, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			utils.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextToken, token)
		c.Next()
	}
}

// RequireRole 角色检查，须在AuthMiddleware之后
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRole) != role {
			utils.Forbidden(c, "requires role "+role)
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserID 当前请求的用户ID
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Query("token")
}
