package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/ydkdan6/poly-com-ai/internal/models"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("record not found")

// AutoMigrate creates or updates every table the backend owns
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.FAQ{},
		&models.ChatSession{},
		&models.Message{},
	)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
