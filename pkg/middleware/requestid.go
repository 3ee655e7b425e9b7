package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

type contextKey string

const (
	requestIDCtxKey contextKey = "requestID"
	userIDCtxKey    contextKey = "userID"
)

// RequestContext copies the request and user ids from the gin context into the
// request's context.Context so services can log them
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(WithRequestContext(c.Request.Context(), c))
		c.Next()
	}
}

// WithRequestContext adds the request id and, if authenticated, the user id to parent
func WithRequestContext(parent context.Context, c *gin.Context) context.Context {
	ctx := parent
	if requestID := c.GetString("requestID"); requestID != "" {
		ctx = context.WithValue(ctx, requestIDCtxKey, requestID)
	}
	if userID := c.GetString(UserIDKey); userID != "" {
		ctx = context.WithValue(ctx, userIDCtxKey, userID)
	}
	return ctx
}

// GetRequestID extracts the request ID from a context
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	requestID, _ := ctx.Value(requestIDCtxKey).(string)
	return requestID
}

// GetUserID extracts the user ID from a context
func GetUserID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	userID, _ := ctx.Value(userIDCtxKey).(string)
	return userID
}
