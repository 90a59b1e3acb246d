package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/auth"
)

const IdentityContextKey = "identity"

// RequireAdmin authenticates requests with an admin identity token or the service key
func RequireAdmin(verifier *auth.Verifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		// Extract Bearer token
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		result := verifier.Verify(c.Request.Context(), parts[1])
		if !result.Authorized {
			logger.Warn("Admin authentication failed",
				zap.String("path", c.Request.URL.Path),
				zap.String("reason", result.Error),
			)
			c.JSON(http.StatusUnauthorized, gin.H{"error": result.Error})
			c.Abort()
			return
		}

		c.Set(IdentityContextKey, result.Identity)
		c.Next()
	}
}

// GetIdentityFromContext retrieves the authenticated identity from the Gin context
func GetIdentityFromContext(c *gin.Context) (*auth.Identity, bool) {
	identity, exists := c.Get(IdentityContextKey)
	if !exists {
		return nil, false
	}

	id, ok := identity.(*auth.Identity)
	return id, ok
}
