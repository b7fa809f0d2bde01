package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/aura-media/vod-backend/internal/auth"
	"github.com/aura-media/vod-backend/pkg/response"
)

// RequireGroup returns a middleware that allows only members of one of the given groups.
func RequireGroup(groups ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(ContextClaims)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		claims, _ := v.(*auth.Claims)
		for _, g := range groups {
			if claims != nil && claims.InGroup(g) {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "insufficient permissions")
		c.Abort()
	}
}
