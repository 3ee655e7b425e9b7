package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultExpiry = 24 * time.Hour

// Service signs and validates HS256 tokens with one secret
type Service struct {
	secretKey []byte
	expiry    time.Duration
	now       func() time.Time
}

// NewService creates a new JWT service
func NewService(secretKey string, expiry time.Duration) *Service {
	if expiry <= 0 {
		expiry = defaultExpiry
	}

	return &Service{
		secretKey: []byte(secretKey),
		expiry:    expiry,
		now:       time.Now,
	}
}

// GenerateToken generates a JWT token for a user
func (s *Service) GenerateToken(userID, email string, role Role) (string, error) {
	claims := newClaims(userID, email, role, s.now(), s.expiry)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ValidateToken validates a JWT token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*JWTClaims, error) {
	return parse(tokenString, s.secretKey)
}
