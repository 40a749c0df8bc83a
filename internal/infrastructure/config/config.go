package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const devJWTSecret = "dev-only-insecure-secret"

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// STORAGE_BACKEND selects "mongo" (MongoDB + Redis) or "memory".
	StorageBackend string `env:"STORAGE_BACKEND, default=mongo"`

	Auth   AuthConfig
	Mongo  MongoConfig
	Redis  RedisConfig
	SMS    SMSConfig
	Notify NotifyConfig
}

type AuthConfig struct {
	JWTSecret           string        `env:"JWT_SECRET"`
	SessionTTL          time.Duration `env:"SESSION_TTL,           default=168h"`
	BcryptCost          int           `env:"BCRYPT_COST,           default=10"`
	AllowEmployeeSignup bool          `env:"ALLOW_EMPLOYEE_SIGNUP, default=false"`
	IdempotencyTTL      time.Duration `env:"IDEMPOTENCY_TTL,       default=24h"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=outage_alerts"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type SMSConfig struct {
	APIKey  string `env:"FAST2SMS_API_KEY"`
	BaseURL string `env:"FAST2SMS_URL, default=https://www.fast2sms.com/dev/bulkV2"`
}

type NotifyConfig struct {
	Workers     int           `env:"NOTIFY_WORKERS,      default=8"`
	MaxAttempts int           `env:"NOTIFY_MAX_ATTEMPTS, default=5"`
	BaseBackoff time.Duration `env:"NOTIFY_BACKOFF,      default=2s"`
	SendTimeout time.Duration `env:"NOTIFY_SEND_TIMEOUT, default=10s"`
	Timezone    string        `env:"NOTIFY_TIMEZONE,     default=Asia/Kolkata"`
}

func (c *Config) IsDevelopment() bool { return c.Env == "development" }

// Location returns the zone used to render times in notifications, falling
// back to UTC for unknown names.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Notify.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads configuration from the environment using go-envconfig. A .env
// file in the working directory is applied first when present; variables
// already set in the environment win.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	switch c.StorageBackend {
	case "mongo", "memory":
	default:
		return fmt.Errorf("config: STORAGE_BACKEND must be mongo or memory, got %q", c.StorageBackend)
	}
	if c.Auth.JWTSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("config: JWT_SECRET is required outside development")
		}
		c.Auth.JWTSecret = devJWTSecret
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("config: BCRYPT_COST must be between 4 and 31, got %d", c.Auth.BcryptCost)
	}
	return nil
}
