package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ydkdan6/poly-com-ai/internal/models"
)

type FAQRepository interface {
	List(ctx context.Context) ([]models.FAQ, error)
	Count(ctx context.Context) (int64, error)
	CreateBatch(ctx context.Context, faqs []models.FAQ) error
}

type GormFAQRepository struct {
	db *gorm.DB
}

func NewGormFAQRepository(db *gorm.DB) *GormFAQRepository {
	return &GormFAQRepository{db: db}
}

// List returns every FAQ row in table order with no filter or limit
func (r *GormFAQRepository) List(ctx context.Context) ([]models.FAQ, error) {
	var faqs []models.FAQ
	err := r.db.WithContext(ctx).Find(&faqs).Error
	return faqs, err
}

func (r *GormFAQRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.FAQ{}).Count(&n).Error
	return n, err
}

func (r *GormFAQRepository) CreateBatch(ctx context.Context, faqs []models.FAQ) error {
	if len(faqs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&faqs).Error
}
