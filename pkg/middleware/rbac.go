package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/ydkdan6/poly-com-ai/pkg/errors"
	"github.com/ydkdan6/poly-com-ai/pkg/jwt"
)

// RequireRole returns a middleware that requires the user to have a specific role.
// It must run after JWTAuth.
func RequireRole(role jwt.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			_ = c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Authentication required"))
			c.Abort()
			return
		}

		if !claims.HasRole(role) {
			_ = c.Error(errors.NewForbiddenError("INSUFFICIENT_ROLE", "Your role does not allow this operation"))
			c.Abort()
			return
		}

		c.Next()
	}
}
