package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FAQ is one curated question/answer pair for the department
type FAQ struct {
	ID        string                      `gorm:"type:varchar(36);primaryKey" json:"id" yaml:"-"`
	Category  string                      `gorm:"index" json:"category" yaml:"category"`
	Question  string                      `gorm:"type:text;not null" json:"question" yaml:"question"`
	Answer    string                      `gorm:"type:text;not null" json:"answer" yaml:"answer"`
	Keywords  datatypes.JSONSlice[string] `json:"keywords" yaml:"keywords"`
	CreatedAt time.Time                   `json:"created_at" yaml:"-"`
	UpdatedAt time.Time                   `json:"updated_at" yaml:"-"`
}

func (FAQ) TableName() string { return "faqs" }

func (f *FAQ) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
