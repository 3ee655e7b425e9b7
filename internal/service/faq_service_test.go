package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ydkdan6/poly-com-ai/internal/repository"
	"github.com/ydkdan6/poly-com-ai/pkg/logger"
)

const seedYAML = `faqs:
  - category: admissions
    question: What are the ND admission requirements?
    answer: Five credits including Mathematics and English.
    keywords: [admission, requirements, nd]
  - category: venues
    question: Where do HND1 classes hold?
    answer: CS Lecture Theatre.
    keywords: [venue, hnd1]
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "faqs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSeedOnlyWhenEmpty(t *testing.T) {
	ctx := context.Background()
	svc := NewFAQService(repository.NewGormFAQRepository(newTestDB(t)), logger.Nop())
	path := writeSeed(t, seedYAML)

	n, err := svc.Seed(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = svc.Seed(ctx, path)
	require.NoError(t, err)
	assert.Zero(t, n)

	faqs, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, faqs, 2)
	assert.Equal(t, "admissions", faqs[0].Category)
	assert.Equal(t, []string{"admission", "requirements", "nd"}, []string(faqs[0].Keywords))
}

func TestSeedRejectsIncompleteEntries(t *testing.T) {
	svc := NewFAQService(repository.NewGormFAQRepository(newTestDB(t)), logger.Nop())

	_, err := svc.Seed(context.Background(), writeSeed(t, "faqs:\n  - question: only a question\n"))
	assert.Error(t, err)

	n, err := svc.Seed(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, n)
}
