package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ydkdan6/poly-com-ai/internal/models"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormUserRepository(newTestDB(t))

	user := &models.User{Email: "ada@kadpoly.test", Password: "secret1", FullName: "Ada", VerificationToken: "tok"}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, "secret1", user.Password)
	assert.Equal(t, "student", user.Role)

	byEmail, err := repo.GetByEmail(ctx, "ada@kadpoly.test")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.True(t, models.CheckPasswordHash("secret1", byEmail.Password))

	byToken, err := repo.GetByVerificationToken(ctx, "tok")
	require.NoError(t, err)
	require.NoError(t, repo.MarkVerified(ctx, byToken.ID))

	verified, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)
	assert.Empty(t, verified.VerificationToken)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.TouchLastLogin(ctx, user.ID, now))

	_, err = repo.GetByEmail(ctx, "nobody@kadpoly.test")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.MarkVerified(ctx, "missing"), ErrNotFound)
}

func TestUserEmailIsUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewGormUserRepository(newTestDB(t))

	require.NoError(t, repo.Create(ctx, &models.User{Email: "dup@kadpoly.test", Password: "secret1"}))
	assert.Error(t, repo.Create(ctx, &models.User{Email: "dup@kadpoly.test", Password: "secret2"}))
}

func TestMessagesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	sessions := NewGormSessionRepository(db)
	messages := NewGormMessageRepository(db)

	session := &models.ChatSession{Title: "Chat Session", UserID: "u-1"}
	require.NoError(t, sessions.Create(ctx, session))
	require.NotEmpty(t, session.ID)

	got, err := sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.UserID)

	for _, content := range []string{"first", "second", "third"} {
		require.NoError(t, messages.Create(ctx, &models.Message{SessionID: session.ID, Content: content, Role: models.RoleUser}))
	}
	// duplicates are stored as-is
	require.NoError(t, messages.Create(ctx, &models.Message{SessionID: session.ID, Content: "third", Role: models.RoleUser}))

	list, err := messages.GetBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, "first", list[0].Content)
	assert.Equal(t, "third", list[3].Content)

	_, err = sessions.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFAQRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormFAQRepository(newTestDB(t))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, repo.CreateBatch(ctx, []models.FAQ{
		{Category: "general", Question: "Q1", Answer: "A1", Keywords: []string{"a", "b"}},
		{Category: "venues", Question: "Q2", Answer: "A2"},
	}))
	require.NoError(t, repo.CreateBatch(ctx, nil))

	faqs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, faqs, 2)
	assert.Equal(t, []string{"a", "b"}, []string(faqs[0].Keywords))

	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
