package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ydkdan6/poly-com-ai/internal/models"
)

type SessionRepository interface {
	Create(ctx context.Context, session *models.ChatSession) error
	GetByID(ctx context.Context, id string) (*models.ChatSession, error)
}

type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetBySession(ctx context.Context, sessionID string) ([]models.Message, error)
}

type GormSessionRepository struct {
	db *gorm.DB
}

func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

func (r *GormSessionRepository) Create(ctx context.Context, session *models.ChatSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *GormSessionRepository) GetByID(ctx context.Context, id string) (*models.ChatSession, error) {
	var session models.ChatSession
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// GetBySession returns the session's messages in insertion order
func (r *GormMessageRepository) GetBySession(ctx context.Context, sessionID string) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&messages).Error
	return messages, err
}
