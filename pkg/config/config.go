package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port     string
		GRPCPort string
		Env      string
		Timeout  time.Duration
	}

	// Database configuration
	Database struct {
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
		Retries  int
		Delay    time.Duration
	}

	// Redis backs token revocation on sign-out
	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	// JWT configuration
	JWT struct {
		Secret string
		Expiry time.Duration
	}

	// Auth holds identity provider behaviour
	Auth struct {
		RequireEmailVerification bool
		VerificationBaseURL      string
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
		AllowedOrigins []string
		MaxBodySize    int64
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Gemini is the hosted generative-model endpoint
	Gemini struct {
		// APIKeySecret is the secret name resolved through pkg/secrets on every relay call
		APIKeySecret    string
		BaseURL         string
		Model           string
		Temperature     float64
		MaxOutputTokens int
		// Timeout of zero leaves the HTTP client without a deadline
		Timeout time.Duration
	}

	// Breaker guards the Gemini call; it only fails fast, it never retries
	Breaker struct {
		Enabled          bool
		FailureThreshold uint
		SuccessThreshold uint
		RetryTimeout     time.Duration
	}

	// Department locates the static prompt facts
	Department struct {
		ProfilePath string
	}

	// FAQ seeding
	FAQ struct {
		SeedPath string
	}

	// Cache settings for immutable session lookups
	Cache struct {
		TTL         time.Duration
		MaxSize     int
		PurgeWindow time.Duration
	}

	// OpenAPI request validation
	OpenAPI struct {
		SchemaPath string
	}

	// Vault holds the secrets backend; disabled means environment variables only
	Vault struct {
		Enabled     bool
		Address     string
		Token       string
		Namespace   string
		SecretsPath string
		CacheTTL    time.Duration
	}
}

// Load reads configuration from the environment (and a .env file when present).
// Every call returns a fresh value; callers own and pass it explicitly.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Server.Port = getEnvString("PORT", "8081")
	cfg.Server.GRPCPort = getEnvString("GRPC_PORT", "")
	cfg.Server.Env = getEnvString("APP_ENV", "development")
	cfg.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 10*time.Second)

	cfg.Database.DSN = getEnvString("DATABASE_DSN", "")
	cfg.Database.Host = getEnvString("DB_HOST", "localhost")
	cfg.Database.Port = getEnvString("DB_PORT", "5432")
	cfg.Database.User = getEnvString("DB_USER", "postgres")
	cfg.Database.Password = getEnvString("DB_PASSWORD", "postgres")
	cfg.Database.Name = getEnvString("DB_NAME", "cs_assistant")
	cfg.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
	cfg.Database.Retries = getEnvInt("DB_CONNECT_RETRIES", 5)
	cfg.Database.Delay = getEnvDuration("DB_CONNECT_DELAY", 5*time.Second)

	cfg.Redis.Addr = getEnvString("REDIS_URL", "localhost:6379")
	cfg.Redis.Password = getEnvString("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.JWT.Secret = getEnvString("JWT_SECRET", "default-jwt-secret-do-not-use-in-production")
	cfg.JWT.Expiry = getEnvDuration("JWT_EXPIRY", 24*time.Hour)

	cfg.Auth.RequireEmailVerification = getEnvBool("REQUIRE_EMAIL_VERIFICATION", true)
	cfg.Auth.VerificationBaseURL = getEnvString("VERIFICATION_BASE_URL", "http://localhost:"+cfg.Server.Port)

	cfg.Security.RateLimit = getEnvFloat("RATE_LIMIT", 5)
	cfg.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)
	cfg.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})
	cfg.Security.MaxBodySize = getEnvInt64("MAX_BODY_SIZE", 1<<20)

	cfg.Logging.Level = getEnvString("LOG_LEVEL", "info")
	cfg.Logging.Format = getEnvString("LOG_FORMAT", "json")

	cfg.Gemini.APIKeySecret = getEnvString("GEMINI_API_KEY_SECRET", "gemini_api_key")
	cfg.Gemini.BaseURL = getEnvString("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
	cfg.Gemini.Model = getEnvString("GEMINI_MODEL", "gemini-2.0-flash")
	cfg.Gemini.Temperature = getEnvFloat("GEMINI_TEMPERATURE", 0.7)
	cfg.Gemini.MaxOutputTokens = getEnvInt("GEMINI_MAX_OUTPUT_TOKENS", 1024)
	cfg.Gemini.Timeout = getEnvDuration("GEMINI_TIMEOUT", 0)

	cfg.Breaker.Enabled = getEnvBool("GEMINI_BREAKER_ENABLED", false)
	cfg.Breaker.FailureThreshold = uint(getEnvInt("GEMINI_BREAKER_FAILURES", 5))
	cfg.Breaker.SuccessThreshold = uint(getEnvInt("GEMINI_BREAKER_SUCCESSES", 2))
	cfg.Breaker.RetryTimeout = getEnvDuration("GEMINI_BREAKER_COOLDOWN", 30*time.Second)

	cfg.Department.ProfilePath = getEnvString("DEPARTMENT_PROFILE_PATH", "")
	cfg.FAQ.SeedPath = getEnvString("FAQ_SEED_PATH", "")

	cfg.Cache.TTL = getEnvDuration("CACHE_TTL", 30*time.Minute)
	cfg.Cache.MaxSize = getEnvInt("CACHE_MAX_SIZE", 1000)
	cfg.Cache.PurgeWindow = getEnvDuration("CACHE_PURGE_WINDOW", 10*time.Minute)

	cfg.OpenAPI.SchemaPath = getEnvString("OPENAPI_SCHEMA_PATH", "")

	cfg.Vault.Enabled = getEnvBool("VAULT_ENABLED", false)
	cfg.Vault.Address = getEnvString("VAULT_ADDR", "")
	cfg.Vault.Token = getEnvString("VAULT_TOKEN", "")
	cfg.Vault.Namespace = getEnvString("VAULT_NAMESPACE", "")
	cfg.Vault.SecretsPath = getEnvString("VAULT_SECRETS_PATH", "cs-assistant")
	cfg.Vault.CacheTTL = getEnvDuration("VAULT_CACHE_TTL", 5*time.Minute)

	return cfg
}

// IsProduction reports whether the server runs with APP_ENV=production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
