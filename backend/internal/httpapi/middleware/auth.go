package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"community-service/backend/internal/auth"
)

// Context keys set for authenticated requests.
const (
	UserIDKey   = "userId"
	UsernameKey = "username"
)

// Auth resolves the caller from "Authorization: Bearer <token>" or, for websockets
// where browsers cannot set headers, from ?token=. A missing or rejected token leaves
// the request anonymous and the action decides; only a verifier outage aborts here.
func Auth(verifier auth.Verifier, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c.Request.Header.Get("Authorization"))
		if token == "" {
			token = strings.TrimSpace(c.Query("token"))
		}
		if token == "" {
			c.Next()
			return
		}

		id, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrVerifierUnavailable) {
				log.Warn("token verification unavailable", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"success": false,
					"code":    "UNAVAILABLE",
					"error":   "authentication service unavailable",
				})
				return
			}
			log.Debug("token rejected", zap.Error(err))
			c.Next()
			return
		}

		c.Set(UserIDKey, id.UserID)
		c.Set(UsernameKey, id.Username)
		c.Request = c.Request.WithContext(auth.WithCaller(c.Request.Context(), id))
		c.Next()
	}
}

func extractBearer(header string) string {
	if header == "" {
		return ""
	}
	// case-insensitive "Bearer " prefix
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
