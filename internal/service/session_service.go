package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ydkdan6/poly-com-ai/internal/models"
	"github.com/ydkdan6/poly-com-ai/internal/repository"
	"github.com/ydkdan6/poly-com-ai/pkg/cache"
	"github.com/ydkdan6/poly-com-ai/pkg/logger"
	"github.com/ydkdan6/poly-com-ai/pkg/metrics"
)

// DefaultSessionTitle is used when a session is created without a title
const DefaultSessionTitle = "Chat Session"

var (
	ErrSessionNotFound  = errors.New("chat session not found")
	ErrSessionForbidden = errors.New("chat session belongs to another user")
	ErrInvalidRole      = errors.New("role must be user or assistant")
)

// SessionService creates chat sessions and appends their messages
type SessionService struct {
	sessions repository.SessionRepository
	messages repository.MessageRepository
	// owners maps session id to user id; sessions are never mutated so entries never go stale
	owners *cache.Cache
	log    *logger.Logger
}

func NewSessionService(
	sessions repository.SessionRepository,
	messages repository.MessageRepository,
	owners *cache.Cache,
	log *logger.Logger,
) *SessionService {
	return &SessionService{sessions: sessions, messages: messages, owners: owners, log: log}
}

// CreateSession inserts a session owned by userID and returns it
func (s *SessionService) CreateSession(ctx context.Context, userID, title string) (*models.ChatSession, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultSessionTitle
	}

	session := &models.ChatSession{Title: title, UserID: userID}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.owners.Set(session.ID, session.UserID)
	s.log.Info("Chat session created", "session_id", session.ID, "user_id", userID)
	return session, nil
}

func (s *SessionService) authorize(ctx context.Context, userID, sessionID string) error {
	owner, ok := s.owners.Get(sessionID)
	if !ok {
		session, err := s.sessions.GetByID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		owner = session.UserID
		s.owners.Set(sessionID, owner)
	}

	if owner.(string) != userID {
		return ErrSessionForbidden
	}
	return nil
}

// AppendMessage stores one message. Identical messages are stored again; there is no dedup.
func (s *SessionService) AppendMessage(ctx context.Context, userID, sessionID, content, role string) (*models.Message, error) {
	if !models.ValidRole(role) {
		return nil, ErrInvalidRole
	}
	if err := s.authorize(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	msg := &models.Message{SessionID: sessionID, Content: content, Role: role}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	metrics.StoredMessages.WithLabelValues(role).Inc()
	return msg, nil
}

// ListMessages returns the session's messages in insertion order
func (s *SessionService) ListMessages(ctx context.Context, userID, sessionID string) ([]models.Message, error) {
	if err := s.authorize(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return s.messages.GetBySession(ctx, sessionID)
}
