// Package config loads server configuration from the environment and
// builds the process logger.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds everything the server needs to start.
type Config struct {
	// BindAddr is the host:port the HTTP server listens on.
	BindAddr string
	// MongoURI connects document, history, user and template storage.
	// Empty selects the in-memory stores.
	MongoURI string
	// MongoDatabase is the database name used on MongoURI.
	MongoDatabase string
	// RedisAddr connects the queue, lease and fan-out backplane.
	// Empty selects the in-process broker.
	RedisAddr string
	// RedisPassword authenticates RedisAddr when set.
	RedisPassword string
	// JWTSecret signs session bearer tokens.
	JWTSecret string
	// LeaseTTL bounds a document's processing lease.
	LeaseTTL time.Duration
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// Development switches the logger to console encoding.
	Development bool
}

// Load reads configuration from a .env file when present, then from the
// environment. Every field has a workable default for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		BindAddr:      getEnv("BIND_ADDR", ":8100"),
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDatabase: getEnv("MONGO_DATABASE", "quokka"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		JWTSecret:     getEnv("JWT_SECRET", "development-secret"),
		LeaseTTL:      30 * time.Second,
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Development:   getBoolEnv("DEVELOPMENT", false),
	}

	if raw := os.Getenv("LEASE_TTL_SECONDS"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil {
			return nil, err
		}
		cfg.LeaseTTL = time.Duration(secs) * time.Second
	}
	return cfg, nil
}

// NewLogger builds the process logger from the configured level.
func (c *Config) NewLogger() (*zap.Logger, error) {
	var zapCfg zap.Config
	if c.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	switch c.LogLevel {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.EncoderConfig.CallerKey = "caller"
	zapCfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	return zapCfg.Build()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
