package app

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	StoreDriver   string `envconfig:"STORE_DRIVER" default:"postgres"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"odyssey_iam"`
	DBAutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	JWTPrivateKey string        `envconfig:"JWT_RSA_PRIVATE_KEY"`
	JWTPublicKey  string        `envconfig:"JWT_RSA_PUBLIC_KEY"`
	JWTTTL        time.Duration `envconfig:"JWT_TTL" default:"24h"`
	JWTIssuer     string        `envconfig:"JWT_ISSUER" default:"odyssey-iam"`

	BcryptCost         int `envconfig:"BCRYPT_COST" default:"12"`
	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
	// ErrorsUnknownStatus is the status used for errors that carry no kind.
	ErrorsUnknownStatus int `envconfig:"ERRORS_UNKNOWN_STATUS" default:"400"`
}

var dotenvOnce sync.Once

// LoadConfig reads configuration from environment variables, after loading an
// optional .env file. Missing credentials or storage settings are reported as
// critical errors.
func LoadConfig() (*Config, error) {
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, shared.Critical("invalid configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every required key is present.
func (c *Config) Validate() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case DriverPostgres, DriverMongo:
		if c.DatabaseURL == "" {
			return shared.Critical("missing configuration", errors.New("DATABASE_URL must be provided"))
		}
	case DriverMemory:
	default:
		return shared.Critical("missing configuration", fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver))
	}
	if c.JWTPrivateKey == "" {
		return shared.Critical("missing configuration", errors.New("JWT_RSA_PRIVATE_KEY must be provided"))
	}
	if c.JWTPublicKey == "" {
		return shared.Critical("missing configuration", errors.New("JWT_RSA_PUBLIC_KEY must be provided"))
	}
	if c.ErrorsUnknownStatus < 400 || c.ErrorsUnknownStatus > 599 {
		return shared.Critical("invalid configuration", fmt.Errorf("ERRORS_UNKNOWN_STATUS %d is not an error status", c.ErrorsUnknownStatus))
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
