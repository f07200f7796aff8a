package middleware

import (
	"net/http"
	"strings"

	"tms/internal/domain"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey    = "userID"
	userRoleKey  = "userRole"
	userEmailKey = "userEmail"
)

// TokenParser validates a bearer token.
type TokenParser interface {
	Parse(raw string) (domain.Principal, error)
}

// Auth requires a valid bearer token and stores the principal on the context.
func Auth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		p, err := tokens.Parse(raw)
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		c.Set(userIDKey, p.UserID)
		c.Set(userRoleKey, p.Role)
		c.Set(userEmailKey, p.Email)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	// browsers cannot set headers on websocket upgrades
	if c.IsWebsocket() {
		return strings.TrimSpace(c.Query("token"))
	}
	return ""
}

// GetPrincipal returns the authenticated caller set by Auth.
func GetPrincipal(c *gin.Context) (domain.Principal, bool) {
	id, ok := c.Get(userIDKey)
	if !ok {
		return domain.Principal{}, false
	}
	uid, _ := id.(int64)
	if uid <= 0 {
		return domain.Principal{}, false
	}
	return domain.Principal{UserID: uid, Role: c.GetString(userRoleKey), Email: c.GetString(userEmailKey)}, true
}

func abortJSON(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success":    false,
		"error":      message,
		"code":       code,
		"request_id": GetRequestID(c),
	})
}
