package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/ydkdan6/poly-com-ai/internal/models"
	"github.com/ydkdan6/poly-com-ai/internal/service"
	apperrors "github.com/ydkdan6/poly-com-ai/pkg/errors"
	"github.com/ydkdan6/poly-com-ai/pkg/middleware"
)

// SessionHandler serves the chat session and message store endpoints
type SessionHandler struct {
	sessions *service.SessionService
}

func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return apperrors.NewNotFoundError("SESSION_NOT_FOUND", "Chat session not found")
	case errors.Is(err, service.ErrSessionForbidden):
		return apperrors.NewForbiddenError("SESSION_FORBIDDEN", "Chat session belongs to another user")
	case errors.Is(err, service.ErrInvalidRole):
		return apperrors.NewBadRequestError("INVALID_ROLE", err.Error())
	default:
		return err
	}
}

// fieldErrors lists the failed validation rule per JSON field, nil for non-validation errors
func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return out
}

// Create inserts a session for the caller and returns it
func (h *SessionHandler) Create(c *gin.Context) {
	var req models.CreateSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apperrors.NewBadRequestError("INVALID_REQUEST", "Invalid request format").Wrap(err))
			return
		}
	}

	session, err := h.sessions.CreateSession(c.Request.Context(), c.GetString(middleware.UserIDKey), req.Title)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// AppendMessage stores one message in a session owned by the caller
func (h *SessionHandler) AppendMessage(c *gin.Context) {
	var req models.CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewBadRequestError("INVALID_REQUEST", "content and a role of user or assistant are required").
			WithDetails(fieldErrors(err)).
			Wrap(err))
		return
	}

	msg, err := h.sessions.AppendMessage(c.Request.Context(), c.GetString(middleware.UserIDKey), c.Param("id"), req.Content, req.Role)
	if err != nil {
		_ = c.Error(sessionError(err))
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// ListMessages returns the session's messages in insertion order
func (h *SessionHandler) ListMessages(c *gin.Context) {
	msgs, err := h.sessions.ListMessages(c.Request.Context(), c.GetString(middleware.UserIDKey), c.Param("id"))
	if err != nil {
		_ = c.Error(sessionError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
