// Package config holds the runtime configuration of the paisley service
// and the YAML process catalog loaded at startup
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/kode4food/paisley/internal/util"
)

// Config holds configuration settings for the orchestration service
type Config struct {
	// API Server
	APIHost  string
	APIPort  int
	LogLevel string

	// Suspended-run store
	StoreBackend string
	RedisAddr    string
	RedisPass    string
	RedisDB      int
	RedisPrefix  string
	SuspendTTL   time.Duration
	BlobURL      string
	BlobPrefix   string

	// Run bounds
	MaxIterations int
	MaxSteps      int
	MaxHandoffs   int

	// Process catalog
	CatalogPath string

	ShutdownTimeout time.Duration
}

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreBlob   = "blob"

	DefaultAPIHost = "0.0.0.0"
	DefaultAPIPort = 8080
	MaxTCPPort     = 65535

	DefaultRedisAddr   = "localhost:6379"
	DefaultRedisDB     = 0
	DefaultRedisPrefix = "paisley:run:"
	DefaultBlobPrefix  = "suspended/"

	DefaultMaxIterations = 15
	DefaultMaxSteps      = 10
	DefaultMaxHandoffs   = 10
	MaxRunBound          = 10_000

	DefaultShutdownTimeout = 10 * time.Second
)

var (
	ErrInvalidAPIPort      = errors.New("invalid API port")
	ErrInvalidStoreBackend = errors.New("invalid store backend")
	ErrBlobURLEmpty        = errors.New("blob store requires a bucket URL")
	ErrInvalidMaxIters     = errors.New("max iterations out of range")
	ErrInvalidMaxSteps     = errors.New("max steps out of range")
	ErrInvalidMaxHandoffs  = errors.New("max handoffs out of range")
)

var validStoreBackends = util.SetOf(StoreMemory, StoreRedis, StoreBlob)

// NewDefaultConfig creates a configuration with sensible defaults for all
// service settings, stores, and run bounds
func NewDefaultConfig() *Config {
	return &Config{
		APIHost:         DefaultAPIHost,
		APIPort:         DefaultAPIPort,
		LogLevel:        "info",
		StoreBackend:    StoreMemory,
		RedisAddr:       DefaultRedisAddr,
		RedisDB:         DefaultRedisDB,
		RedisPrefix:     DefaultRedisPrefix,
		BlobPrefix:      DefaultBlobPrefix,
		MaxIterations:   DefaultMaxIterations,
		MaxSteps:        DefaultMaxSteps,
		MaxHandoffs:     DefaultMaxHandoffs,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// LoadFromEnv overlays configuration from environment variables and
// validates the result
func (c *Config) LoadFromEnv() error {
	setString(&c.APIHost, "PAISLEY_API_HOST")
	setString(&c.LogLevel, "PAISLEY_LOG_LEVEL")
	setString(&c.StoreBackend, "PAISLEY_STORE")
	setString(&c.RedisAddr, "PAISLEY_REDIS_ADDR")
	setString(&c.RedisPass, "PAISLEY_REDIS_PASSWORD")
	setString(&c.RedisPrefix, "PAISLEY_REDIS_PREFIX")
	setString(&c.BlobURL, "PAISLEY_BLOB_URL")
	setString(&c.BlobPrefix, "PAISLEY_BLOB_PREFIX")
	setString(&c.CatalogPath, "PAISLEY_CATALOG")

	if err := setInt(&c.APIPort, "PAISLEY_API_PORT"); err != nil {
		return err
	}
	if err := setInt(&c.RedisDB, "PAISLEY_REDIS_DB"); err != nil {
		return err
	}
	if err := setInt(&c.MaxIterations, "PAISLEY_MAX_ITERATIONS"); err != nil {
		return err
	}
	if err := setInt(&c.MaxSteps, "PAISLEY_MAX_STEPS"); err != nil {
		return err
	}
	if err := setInt(&c.MaxHandoffs, "PAISLEY_MAX_HANDOFFS"); err != nil {
		return err
	}
	if err := setDuration(&c.SuspendTTL, "PAISLEY_SUSPEND_TTL"); err != nil {
		return err
	}

	return c.Validate()
}

// Validate checks the configuration for internal consistency
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}
	if !validStoreBackends.Contains(c.StoreBackend) {
		return fmt.Errorf("%w: %s", ErrInvalidStoreBackend, c.StoreBackend)
	}
	if c.StoreBackend == StoreBlob && c.BlobURL == "" {
		return ErrBlobURLEmpty
	}
	if c.MaxIterations <= 0 || c.MaxIterations > MaxRunBound {
		return fmt.Errorf("%w: %d", ErrInvalidMaxIters, c.MaxIterations)
	}
	if c.MaxSteps <= 0 || c.MaxSteps > MaxRunBound {
		return fmt.Errorf("%w: %d", ErrInvalidMaxSteps, c.MaxSteps)
	}
	if c.MaxHandoffs <= 0 || c.MaxHandoffs > MaxRunBound {
		return fmt.Errorf("%w: %d", ErrInvalidMaxHandoffs, c.MaxHandoffs)
	}
	return nil
}

func setString(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func setInt(target *int, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*target = parsed
	return nil
}

func setDuration(target *time.Duration, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*target = parsed
	return nil
}
