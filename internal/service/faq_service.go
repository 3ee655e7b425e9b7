package service

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ydkdan6/poly-com-ai/internal/models"
	"github.com/ydkdan6/poly-com-ai/internal/repository"
	"github.com/ydkdan6/poly-com-ai/pkg/logger"
)

// FAQService exposes the read-only FAQ table
type FAQService struct {
	faqs repository.FAQRepository
	log  *logger.Logger
}

func NewFAQService(faqs repository.FAQRepository, log *logger.Logger) *FAQService {
	return &FAQService{faqs: faqs, log: log}
}

// List returns every FAQ record
func (s *FAQService) List(ctx context.Context) ([]models.FAQ, error) {
	return s.faqs.List(ctx)
}

type faqSeedFile struct {
	FAQs []models.FAQ `yaml:"faqs"`
}

// LoadSeedFile parses a YAML file with a top-level "faqs" list
func LoadSeedFile(path string) ([]models.FAQ, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read faq seed: %w", err)
	}

	var seed faqSeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse faq seed %s: %w", path, err)
	}

	for i, f := range seed.FAQs {
		if f.Question == "" || f.Answer == "" {
			return nil, fmt.Errorf("faq seed %s: entry %d needs a question and an answer", path, i)
		}
	}
	return seed.FAQs, nil
}

// Seed loads the file at path into the table, but only when the table is empty.
// It returns the number of inserted records.
func (s *FAQService) Seed(ctx context.Context, path string) (int, error) {
	if path == "" {
		return 0, nil
	}

	n, err := s.faqs.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Debug("FAQ table already populated, skipping seed", "count", n)
		return 0, nil
	}

	faqs, err := LoadSeedFile(path)
	if err != nil {
		return 0, err
	}
	if err := s.faqs.CreateBatch(ctx, faqs); err != nil {
		return 0, err
	}

	s.log.Info("FAQ table seeded", "path", path, "count", len(faqs))
	return len(faqs), nil
}
