package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ydkdan6/poly-com-ai/pkg/errors"
	"github.com/ydkdan6/poly-com-ai/pkg/jwt"
	"github.com/ydkdan6/poly-com-ai/pkg/logger"
)

// Context keys set by the auth middleware
const (
	ClaimsKey = "claims"
	UserIDKey = "userID"
)

// Revoker reports whether a token id was revoked by sign-out
type Revoker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// JWTAuth requires a valid, unrevoked bearer token and stores its claims in the context
func JWTAuth(jwtService *jwt.Service, revoker Revoker, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			_ = c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Authorization header is required"))
			c.Abort()
			return
		}

		claims, err := authenticate(c.Request.Context(), jwtService, revoker, log, token)
		if err != nil {
			_ = c.Error(errors.NewUnauthorizedError("INVALID_TOKEN", "Invalid or expired token"))
			c.Abort()
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

// OptionalAuth stores claims when a valid token is present and otherwise lets the request through
func OptionalAuth(jwtService *jwt.Service, revoker Revoker, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := BearerToken(c); token != "" {
			if claims, err := authenticate(c.Request.Context(), jwtService, revoker, log, token); err == nil {
				c.Set(ClaimsKey, claims)
				c.Set(UserIDKey, claims.UserID)
			}
		}
		c.Next()
	}
}

func authenticate(ctx context.Context, jwtService *jwt.Service, revoker Revoker, log *logger.Logger, token string) (*jwt.JWTClaims, error) {
	claims, err := jwtService.ValidateToken(token)
	if err != nil {
		log.Warn("Invalid JWT token", "error", err.Error())
		return nil, err
	}

	if revoker != nil {
		revoked, err := revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			// revocation store down: the signature and expiry checks still hold
			log.Warn("Token revocation check failed", "error", err.Error())
		} else if revoked {
			return nil, jwt.ErrInvalidToken
		}
	}

	return claims, nil
}

// ClaimsFrom returns the claims stored by JWTAuth or OptionalAuth
func ClaimsFrom(c *gin.Context) (*jwt.JWTClaims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*jwt.JWTClaims)
	return claims, ok
}
