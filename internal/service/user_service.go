package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ydkdan6/poly-com-ai/internal/models"
	"github.com/ydkdan6/poly-com-ai/internal/repository"
	"github.com/ydkdan6/poly-com-ai/pkg/jwt"
	"github.com/ydkdan6/poly-com-ai/pkg/logger"
	"github.com/ydkdan6/poly-com-ai/pkg/metrics"
)

// The messages are shown to users verbatim by the sign-in screen
var (
	ErrUserAlreadyExists        = errors.New("User already registered")
	ErrInvalidCredentials       = errors.New("Invalid login credentials")
	ErrEmailNotConfirmed        = errors.New("Email not confirmed")
	ErrUserNotFound             = errors.New("User not found")
	ErrInvalidVerificationToken = errors.New("Verification link is invalid or has already been used")
)

// TokenRevoker remembers revoked token ids until they would have expired anyway
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
}

// VerificationSender delivers the email verification link to a new user
type VerificationSender interface {
	SendVerification(ctx context.Context, user *models.User, link string) error
}

// LogVerificationSender writes verification links to the log instead of sending mail
type LogVerificationSender struct {
	Log *logger.Logger
}

func (s LogVerificationSender) SendVerification(_ context.Context, user *models.User, link string) error {
	s.Log.Info("Email verification link issued", "user_id", user.ID, "email", user.Email, "link", link)
	return nil
}

// UserServiceConfig controls sign-up behaviour
type UserServiceConfig struct {
	RequireEmailVerification bool
	VerificationBaseURL      string
}

// UserService handles sign-up, sign-in, verification and sign-out
type UserService struct {
	users   repository.UserRepository
	tokens  *jwt.Service
	revoker TokenRevoker
	sender  VerificationSender
	cfg     UserServiceConfig
	log     *logger.Logger
	now     func() time.Time
}

// NewUserService creates a new user service
func NewUserService(
	users repository.UserRepository,
	tokens *jwt.Service,
	revoker TokenRevoker,
	sender VerificationSender,
	cfg UserServiceConfig,
	log *logger.Logger,
) *UserService {
	return &UserService{
		users:   users,
		tokens:  tokens,
		revoker: revoker,
		sender:  sender,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newVerificationToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Signup creates an account. It never signs the user in.
func (s *UserService) Signup(ctx context.Context, req *models.SignupRequest) (*models.User, error) {
	email := normalizeEmail(req.Email)

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		metrics.AuthEvents.WithLabelValues("signup", "duplicate").Inc()
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	user := &models.User{
		FullName:      strings.TrimSpace(req.FullName),
		Email:         email,
		Password:      req.Password,
		EmailVerified: !s.cfg.RequireEmailVerification,
	}
	if s.cfg.RequireEmailVerification {
		token, err := newVerificationToken()
		if err != nil {
			return nil, fmt.Errorf("generate verification token: %w", err)
		}
		user.VerificationToken = token
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if s.cfg.RequireEmailVerification {
		link := s.verificationLink(user.VerificationToken)
		if err := s.sender.SendVerification(ctx, user, link); err != nil {
			s.log.LogError(err, "Failed to send verification email", "user_id", user.ID)
		}
	}

	metrics.AuthEvents.WithLabelValues("signup", "ok").Inc()
	s.log.Info("User signed up", "user_id", user.ID)
	return user, nil
}

func (s *UserService) verificationLink(token string) string {
	return strings.TrimRight(s.cfg.VerificationBaseURL, "/") + "/api/v1/auth/verify?token=" + url.QueryEscape(token)
}

// Login checks the credentials and issues a token
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.User, string, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.AuthEvents.WithLabelValues("login", "invalid").Inc()
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !models.CheckPasswordHash(req.Password, user.Password) {
		metrics.AuthEvents.WithLabelValues("login", "invalid").Inc()
		return nil, "", ErrInvalidCredentials
	}

	if s.cfg.RequireEmailVerification && !user.EmailVerified {
		metrics.AuthEvents.WithLabelValues("login", "unverified").Inc()
		return nil, "", ErrEmailNotConfirmed
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email, jwt.Role(user.Role))
	if err != nil {
		return nil, "", err
	}

	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.log.LogError(err, "Failed to record last login", "user_id", user.ID)
	} else {
		user.LastLogin = now
	}

	metrics.AuthEvents.WithLabelValues("login", "ok").Inc()
	return user, token, nil
}

// GetUser returns the user with the given id
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// VerifyEmail consumes a verification token
func (s *UserService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidVerificationToken
	}

	user, err := s.users.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.AuthEvents.WithLabelValues("verify", "invalid").Inc()
			return nil, ErrInvalidVerificationToken
		}
		return nil, err
	}

	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return nil, err
	}
	user.EmailVerified = true
	user.VerificationToken = ""

	metrics.AuthEvents.WithLabelValues("verify", "ok").Inc()
	return user, nil
}

// Logout revokes the token for the rest of its lifetime
func (s *UserService) Logout(ctx context.Context, claims *jwt.JWTClaims) error {
	if err := s.revoker.Revoke(ctx, claims.ID, claims.ExpiresIn(s.now())); err != nil {
		metrics.AuthEvents.WithLabelValues("logout", "error").Inc()
		return fmt.Errorf("revoke token: %w", err)
	}
	metrics.AuthEvents.WithLabelValues("logout", "ok").Inc()
	return nil
}
