package http

import (
	stdhttp "net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vovakirdan/gamechat-server/internal/auth"
	"github.com/vovakirdan/gamechat-server/internal/chat"
)

const claimsContextKey = "claims"

// requireLevel validates the bearer token and rejects callers below the
// given access level.
func requireLevel(jwtCfg *auth.JWTConfig, min chat.AccessLevel) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(stdhttp.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := auth.ValidateToken(jwtCfg, token)
		if err != nil {
			c.AbortWithStatusJSON(stdhttp.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if claims.AccessLevel() < min {
			c.AbortWithStatusJSON(stdhttp.StatusForbidden, gin.H{"error": "insufficient access level"})
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}
