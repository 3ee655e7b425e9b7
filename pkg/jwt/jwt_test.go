package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewService("secret", time.Hour)

	token, err := svc.GenerateToken("user-1", "a@b.test", RoleStudent)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@b.test", claims.Email)
	assert.Equal(t, RoleStudent, claims.Role)
	assert.NotEmpty(t, claims.ID)
	assert.InDelta(t, time.Hour.Seconds(), claims.ExpiresIn(time.Now()).Seconds(), 5)
}

func TestTokensGetDistinctIDs(t *testing.T) {
	svc := NewService("secret", time.Hour)

	a, err := svc.GenerateToken("user-1", "a@b.test", RoleStudent)
	require.NoError(t, err)
	b, err := svc.GenerateToken("user-1", "a@b.test", RoleStudent)
	require.NoError(t, err)

	ca, _ := svc.ValidateToken(a)
	cb, _ := svc.ValidateToken(b)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewService("one", time.Hour).GenerateToken("u", "e@x.test", RoleStudent)
	require.NoError(t, err)

	_, err = NewService("two", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := NewService("secret", time.Minute)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := svc.GenerateToken("u", "e@x.test", RoleStudent)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestAdminPassesRoleChecks(t *testing.T) {
	admin := &JWTClaims{Role: RoleAdmin}
	student := &JWTClaims{Role: RoleStudent}

	assert.True(t, admin.HasRole(RoleStudent))
	assert.False(t, student.HasRole(RoleAdmin))
}
