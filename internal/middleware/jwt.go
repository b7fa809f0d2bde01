package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aura-media/vod-backend/internal/auth"
	"github.com/aura-media/vod-backend/pkg/response"
)

const (
	// ContextUsername is the key for the verified username in gin context.
	ContextUsername = "username"
	// ContextClaims is the key for the full token claims in gin context.
	ContextClaims = "claims"
)

// TokenVerifier validates a bearer token.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// JWT returns a middleware that validates the bearer token and sets user claims in context.
func JWT(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "Invalid or missing authorization")
			c.Abort()
			return
		}
		token := header
		if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = parts[1]
		}
		claims, err := verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			response.Unauthorized(c, "Invalid or missing authorization")
			c.Abort()
			return
		}
		c.Set(ContextUsername, claims.User())
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// Username returns the verified username set by JWT.
func Username(c *gin.Context) string {
	return c.GetString(ContextUsername)
}
