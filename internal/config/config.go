package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		ENV string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		LogSQL   bool
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	GRPC struct {
		Host string
		Port string
	}

	Metrics struct {
		Addr string
	}

	JWT struct {
		Secret    string
		Algorithm string
		AccessTTL time.Duration
	}

	Auth struct {
		RefreshTTL time.Duration
		BcryptCost int
	}

	Verification struct {
		CodeTTL          time.Duration
		MaxAttempts      int
		ResendCooldown   time.Duration
		ResendMaxPerHour int
	}

	RateLimit struct {
		Enabled           bool
		RequestsPerMinute int
		BlockTTL          time.Duration
	}

	AMQP struct {
		URL   string
		Queue string
	}
}

// New builds the configuration from the process environment.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
func New() *Config {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.App.ENV = getEnvDefault("APP_ENV", "development")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "pature_api")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "pature")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}
	cfg.DB.LogSQL = isTruthy(os.Getenv("DB_LOG_SQL"))

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	// gRPC
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	// Prometheus listener; empty disables it
	cfg.Metrics.Addr = getEnvDefault("METRICS_ADDR", ":9090")

	// Tokens
	cfg.JWT.Secret = strings.TrimSpace(os.Getenv("JWT_SECRET_KEY"))
	cfg.JWT.Algorithm = getEnvDefault("JWT_ALGORITHM", "HS256")
	cfg.JWT.AccessTTL = time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 15)) * time.Minute

	cfg.Auth.RefreshTTL = time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRE_DAYS", 30)) * 24 * time.Hour
	cfg.Auth.BcryptCost = getEnvInt("BCRYPT_COST", 10)

	// E-mail verification codes
	cfg.Verification.CodeTTL = time.Duration(getEnvInt("EMAIL_VERIFICATION_CODE_TTL_MINUTES", 15)) * time.Minute
	cfg.Verification.MaxAttempts = getEnvInt("EMAIL_VERIFICATION_MAX_ATTEMPTS", 5)
	cfg.Verification.ResendCooldown = time.Duration(getEnvInt("EMAIL_VERIFICATION_RESEND_COOLDOWN_SECONDS", 60)) * time.Second
	cfg.Verification.ResendMaxPerHour = getEnvInt("EMAIL_VERIFICATION_RESEND_MAX_PER_HOUR", 5)

	// IP throttling
	cfg.RateLimit.Enabled = getEnvBool("IP_RATE_LIMIT_ENABLED", true)
	cfg.RateLimit.RequestsPerMinute = getEnvInt("IP_RATE_LIMIT_REQUESTS_PER_MINUTE", 60)
	cfg.RateLimit.BlockTTL = getEnvDuration("IP_RATE_LIMIT_BLOCK_TTL", 10*time.Minute)

	// Match events; empty URL keeps the no-op publisher
	cfg.AMQP.URL = getEnvDefault("RABBITMQ_URL", "")
	cfg.AMQP.Queue = getEnvDefault("RABBITMQ_MATCH_QUEUE", "match.created")

	return cfg
}

// Validate reports configuration that must stop the process at startup.
func (c *Config) Validate() error {
	var problems []string
	if c.JWT.Secret == "" {
		problems = append(problems, "JWT_SECRET_KEY is required")
	}
	if c.JWT.AccessTTL <= 0 {
		problems = append(problems, "ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if c.Auth.RefreshTTL <= c.JWT.AccessTTL {
		problems = append(problems, "refresh token ttl must exceed access token ttl")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		problems = append(problems, "BCRYPT_COST must be between 4 and 31")
	}
	if len(problems) > 0 {
		return errors.New("invalid config: " + strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.App.ENV, "development")
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return isTruthy(v)
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
