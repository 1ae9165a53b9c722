package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures service level configuration. Stores fall back to in-memory
// implementations when the corresponding backend is not configured, so a zero
// Config is usable in tests.
type Config struct {
	PostgresURL string
	RedisAddr   string

	KafkaBrokers string
	AuditTopic   string

	// TokenSigningKey signs export download tokens.
	TokenSigningKey string
	DownloadTTL     time.Duration

	// GrantTTL is the default sharing grant lifetime when the caller does
	// not set an explicit expiry.
	GrantTTL time.Duration

	AuditBuffer int
}

// Defaults mirror the development environment; production deployments
// override everything via environment variables.
var (
	DefaultDownloadTTL = 15 * time.Minute
	DefaultGrantTTL    = 30 * 24 * time.Hour
	DefaultAuditBuffer = 256
)

// FromEnv builds a Config from environment variables so wiring stays lean.
func FromEnv() Config {
	cfg := Config{
		PostgresURL:     os.Getenv("CREDTRUST_POSTGRES_URL"),
		RedisAddr:       os.Getenv("CREDTRUST_REDIS_ADDR"),
		KafkaBrokers:    os.Getenv("CREDTRUST_KAFKA_BROKERS"),
		AuditTopic:      os.Getenv("CREDTRUST_AUDIT_TOPIC"),
		TokenSigningKey: os.Getenv("CREDTRUST_TOKEN_SIGNING_KEY"),
		DownloadTTL:     DefaultDownloadTTL,
		GrantTTL:        DefaultGrantTTL,
		AuditBuffer:     DefaultAuditBuffer,
	}

	if cfg.AuditTopic == "" {
		cfg.AuditTopic = "credtrust.audit"
	}
	if cfg.TokenSigningKey == "" {
		// Development default - must be overridden in production.
		cfg.TokenSigningKey = "dev-secret-key-change-in-production"
	}
	if v := os.Getenv("CREDTRUST_DOWNLOAD_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.DownloadTTL = d
		}
	}
	if v := os.Getenv("CREDTRUST_GRANT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.GrantTTL = d
		}
	}
	if v := os.Getenv("CREDTRUST_AUDIT_BUFFER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AuditBuffer = n
		}
	}

	return cfg
}
