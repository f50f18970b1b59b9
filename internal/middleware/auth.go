package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"quickai/api/internal/config"
	"quickai/api/internal/security"
)

const claimsKey = "auth_claims"

// Auth verifies the bearer token issued by the auth gateway and stashes its
// claims in the request context. It does not hit any user store; identity
// and plan both come from the token.
func Auth(cfg *config.AppConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "authentication required"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := security.ParseAccessToken(tokenStr, cfg.Security.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid or expired token"})
			return
		}

		c.Set(claimsKey, *claims)
		c.Next()
	}
}

// CurrentClaims returns the verified claims set by Auth.
func CurrentClaims(c *gin.Context) (security.AccessClaims, bool) {
	val, exists := c.Get(claimsKey)
	if !exists {
		return security.AccessClaims{}, false
	}
	claims, ok := val.(security.AccessClaims)
	return claims, ok
}
