// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMongo    = "mongo"
	StoreNATS     = "nats"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	StoreBackend    string `mapstructure:"STORE_BACKEND"`
	DBHost          string `mapstructure:"DB_HOST"`
	DBPort          string `mapstructure:"DB_PORT"`
	DBUser          string `mapstructure:"DB_USER"`
	DBPassword      string `mapstructure:"DB_PASSWORD"`
	DBName          string `mapstructure:"DB_NAME"`
	DBSSLMode       string `mapstructure:"DB_SSLMODE"`
	DBMaxOpenConns  int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	SQLitePath      string `mapstructure:"SQLITE_PATH"`
	MongoURI        string `mapstructure:"MONGODB_URI"`
	MongoDatabase   string `mapstructure:"MONGODB_DATABASE"`
	NATSURL         string `mapstructure:"NATS_URL"`
	NATSBucket      string `mapstructure:"NATS_BUCKET"`
	RedisURL        string `mapstructure:"REDIS_URL"`
	CacheTTLSeconds int    `mapstructure:"CACHE_TTL_SECONDS"`

	MaxAttempts        int    `mapstructure:"MAX_ATTEMPTS"`
	BackoffInitialMS   int    `mapstructure:"BACKOFF_INITIAL_MS"`
	BackoffMaxMS       int    `mapstructure:"BACKOFF_MAX_MS"`
	OperationTimeoutMS int    `mapstructure:"OPERATION_TIMEOUT_MS"`
	CommentOrder       string `mapstructure:"COMMENT_ORDER"`

	RateLimitPerMinute int `mapstructure:"RATE_LIMIT_PER_MINUTE"`

	TracingEnabled  bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint    string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampler  float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional; environment variables and defaults cover everything.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env != "" && env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err == nil {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	viper.SetDefault("STORE_BACKEND", StoreMemory)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "campusfeed")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 20)
	viper.SetDefault("SQLITE_PATH", "campusfeed.db")
	viper.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGODB_DATABASE", "campusfeed")
	viper.SetDefault("NATS_URL", "nats://127.0.0.1:4222")
	viper.SetDefault("NATS_BUCKET", "campusfeed_posts")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("CACHE_TTL_SECONDS", 300)
	viper.SetDefault("MAX_ATTEMPTS", 5)
	viper.SetDefault("BACKOFF_INITIAL_MS", 10)
	viper.SetDefault("BACKOFF_MAX_MS", 200)
	viper.SetDefault("OPERATION_TIMEOUT_MS", 5000)
	viper.SetDefault("COMMENT_ORDER", "oldest")
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 30)
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) normalize() {
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	c.CommentOrder = strings.ToLower(strings.TrimSpace(c.CommentOrder))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// IsDevelopment reports whether the app runs locally or under tests.
func (c *Config) IsDevelopment() bool {
	return c.Env == "" || c.Env == "development" || c.Env == "test"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	switch c.StoreBackend {
	case StoreMemory, StorePostgres, StoreSQLite, StoreMongo, StoreNATS:
	default:
		return fmt.Errorf("STORE_BACKEND %q is not one of memory, postgres, sqlite, mongo, nats", c.StoreBackend)
	}
	switch c.CommentOrder {
	case "oldest", "newest":
	default:
		return fmt.Errorf("COMMENT_ORDER %q must be oldest or newest", c.CommentOrder)
	}

	if c.MaxAttempts < 1 {
		return errors.New("MAX_ATTEMPTS must be at least 1")
	}
	if c.BackoffInitialMS < 1 || c.BackoffMaxMS < c.BackoffInitialMS {
		return errors.New("BACKOFF_INITIAL_MS must be positive and not exceed BACKOFF_MAX_MS")
	}
	if c.OperationTimeoutMS < 1 {
		return errors.New("OPERATION_TIMEOUT_MS must be positive")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.StoreBackend == StoreMemory {
			return errors.New("STORE_BACKEND=memory is not durable and cannot be used in production")
		}
		if c.StoreBackend == StorePostgres && (c.DBPassword == "password" || c.DBPassword == "") {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}

// BackoffInitial returns the first retry delay.
func (c *Config) BackoffInitial() time.Duration {
	return time.Duration(c.BackoffInitialMS) * time.Millisecond
}

// BackoffMax returns the retry delay cap.
func (c *Config) BackoffMax() time.Duration {
	return time.Duration(c.BackoffMaxMS) * time.Millisecond
}

// OperationTimeout returns the default per-operation deadline.
func (c *Config) OperationTimeout() time.Duration {
	return time.Duration(c.OperationTimeoutMS) * time.Millisecond
}

// CacheTTL returns how long post snapshots stay in Redis.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// PostgresDSN builds the DSN for the postgres backend.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}
