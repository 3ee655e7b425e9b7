package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatSession groups the messages of one chat bootstrap
type ChatSession struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title     string    `json:"title"`
	UserID    string    `gorm:"type:varchar(36);index;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (ChatSession) TableName() string { return "chat_sessions" }

func (s *ChatSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Message is one persisted chat turn. The auto-increment ID gives insertion order.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"type:varchar(36);index;not null" json:"session_id"`
	Content   string    `gorm:"type:text" json:"content"`
	Role      string    `gorm:"type:varchar(16);not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (Message) TableName() string { return "messages" }

// CreateSessionRequest is the body of POST /sessions
type CreateSessionRequest struct {
	Title string `json:"title"`
}

// CreateMessageRequest is the body of POST /sessions/:id/messages
type CreateMessageRequest struct {
	Content string `json:"content" binding:"required"`
	Role    string `json:"role" binding:"required,oneof=user assistant"`
}

// ValidRole reports whether role is a message role the store accepts
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}
