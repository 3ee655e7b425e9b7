package di

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/ydkdan6/poly-com-ai/ai"
	"github.com/ydkdan6/poly-com-ai/internal/repository"
	"github.com/ydkdan6/poly-com-ai/internal/service"
	"github.com/ydkdan6/poly-com-ai/pkg/cache"
	"github.com/ydkdan6/poly-com-ai/pkg/config"
	"github.com/ydkdan6/poly-com-ai/pkg/health"
	"github.com/ydkdan6/poly-com-ai/pkg/jwt"
	"github.com/ydkdan6/poly-com-ai/pkg/logger"
	"github.com/ydkdan6/poly-com-ai/pkg/metrics"
	"github.com/ydkdan6/poly-com-ai/pkg/resilience"
	"github.com/ydkdan6/poly-com-ai/pkg/secrets"
	"github.com/ydkdan6/poly-com-ai/shared/redis"
)

// Container holds all the dependencies for the application
type Container struct {
	Config     *config.Config
	DB         *gorm.DB
	Redis      *redis.RedisClient
	Logger     *logger.Logger
	JWTService *jwt.Service
	Secrets    secrets.Manager

	UserService    *service.UserService
	SessionService *service.SessionService
	FAQService     *service.FAQService
	RelayService   *service.RelayService

	Health *health.Checker

	closers []func()
}

// Options are the externally built resources the container wires together
type Options struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.RedisClient
	Logger *logger.Logger
	// Secrets defaults to a VaultManager built from Config.Vault
	Secrets secrets.Manager
	// Sender defaults to logging verification links
	Sender service.VerificationSender
}

// New creates a new dependency injection container
func New(opts Options) (*Container, error) {
	cfg := opts.Config
	if opts.DB == nil || opts.Redis == nil {
		return nil, fmt.Errorf("di: database and redis clients are required")
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetGlobal()
	}

	c := &Container{
		Config:     cfg,
		DB:         opts.DB,
		Redis:      opts.Redis,
		Logger:     log,
		JWTService: jwt.NewService(cfg.JWT.Secret, cfg.JWT.Expiry),
		Secrets:    opts.Secrets,
	}

	if c.Secrets == nil {
		vault, err := secrets.NewVaultManager(secrets.VaultConfig{
			Enabled:     cfg.Vault.Enabled,
			Address:     cfg.Vault.Address,
			Token:       cfg.Vault.Token,
			Namespace:   cfg.Vault.Namespace,
			SecretsPath: cfg.Vault.SecretsPath,
			CacheTTL:    cfg.Vault.CacheTTL,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create secrets manager: %w", err)
		}
		c.Secrets = vault
		c.closers = append(c.closers, vault.Close)
	}

	sender := opts.Sender
	if sender == nil {
		sender = service.LogVerificationSender{Log: log}
	}

	userRepo := repository.NewGormUserRepository(opts.DB)
	sessionRepo := repository.NewGormSessionRepository(opts.DB)
	messageRepo := repository.NewGormMessageRepository(opts.DB)
	faqRepo := repository.NewGormFAQRepository(opts.DB)

	c.UserService = service.NewUserService(userRepo, c.JWTService, opts.Redis, sender, service.UserServiceConfig{
		RequireEmailVerification: cfg.Auth.RequireEmailVerification,
		VerificationBaseURL:      cfg.Auth.VerificationBaseURL,
	}, log)

	owners := cache.New(cache.Options{
		DefaultExpiration: cfg.Cache.TTL,
		CleanupInterval:   cfg.Cache.PurgeWindow,
		MaxItems:          cfg.Cache.MaxSize,
	})
	c.closers = append(c.closers, owners.Close)
	c.SessionService = service.NewSessionService(sessionRepo, messageRepo, owners, log)

	c.FAQService = service.NewFAQService(faqRepo, log)

	profile, err := ai.LoadProfile(cfg.Department.ProfilePath)
	if err != nil {
		return nil, err
	}

	var breaker *resilience.CircuitBreaker
	if cfg.Breaker.Enabled {
		breaker = resilience.NewCircuitBreaker(resilience.Config{
			Name:             "gemini",
			FailureThreshold: cfg.Breaker.FailureThreshold,
			SuccessThreshold: cfg.Breaker.SuccessThreshold,
			RetryTimeout:     cfg.Breaker.RetryTimeout,
			IsFailure:        service.IsBreakerFailure,
		}, log)
		breaker.OnStateChange(func(_ string, _, to resilience.State) {
			if to == resilience.StateOpen {
				metrics.BreakerOpen.Set(1)
			} else {
				metrics.BreakerOpen.Set(0)
			}
		})
	}

	gemini := ai.NewGeminiClient(ai.GeminiConfig{
		BaseURL: cfg.Gemini.BaseURL,
		Model:   cfg.Gemini.Model,
		Timeout: cfg.Gemini.Timeout,
	}, log)

	c.RelayService = service.NewRelayService(c.Secrets, faqRepo, gemini, ai.NewPromptBuilder(profile), breaker, service.RelayConfig{
		APIKeySecret:    cfg.Gemini.APIKeySecret,
		Temperature:     cfg.Gemini.Temperature,
		MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
	}, log)

	c.Health = c.newHealthChecker()
	return c, nil
}

func (c *Container) newHealthChecker() *health.Checker {
	checker := health.NewChecker(c.Logger, c.Config.Server.Timeout*3)

	checker.RegisterPingCheck("database", func(ctx context.Context) error {
		return config.PingDB(ctx, c.DB)
	})

	checker.RegisterCheck("redis", false, func(ctx context.Context) (health.Status, string, error) {
		if err := c.Redis.Ping(ctx); err != nil {
			return health.StatusDegraded, "sign-out revocation unavailable", err
		}
		return health.StatusUp, "redis is reachable", nil
	})

	checker.RegisterCheck("gemini", false, func(context.Context) (health.Status, string, error) {
		if c.RelayService.BreakerOpen() {
			return health.StatusDegraded, "circuit breaker open", nil
		}
		return health.StatusUp, "accepting requests", nil
	})

	return checker
}

// Close releases the background resources owned by the container
func (c *Container) Close() {
	for _, fn := range c.closers {
		fn()
	}
}
