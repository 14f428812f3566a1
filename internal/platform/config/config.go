package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs from the environment so main
// stays lean. Empty optional values select the development fallbacks: no
// PostgresDSN means the in-memory store, no KafkaBrokers means the logging
// dispatcher, no RedisURL means the in-process rate limiter.
type Config struct {
	Addr        string
	MetricsAddr string

	PostgresDSN string

	RedisURL string

	KafkaBrokers []string
	NotifyTopic  string

	WebhookSecret      string
	SignatureTolerance time.Duration

	AdminJWTKey string

	ValidateRateLimit  int
	ValidateRateWindow time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:               envOr("KEYGATE_ADDR", ":8080"),
		MetricsAddr:        envOr("KEYGATE_METRICS_ADDR", ":9090"),
		PostgresDSN:        os.Getenv("KEYGATE_POSTGRES_DSN"),
		RedisURL:           os.Getenv("KEYGATE_REDIS_URL"),
		NotifyTopic:        envOr("KEYGATE_NOTIFY_TOPIC", "license.notifications"),
		WebhookSecret:      os.Getenv("KEYGATE_WEBHOOK_SECRET"),
		SignatureTolerance: envDuration("KEYGATE_SIGNATURE_TOLERANCE", 5*time.Minute),
		AdminJWTKey:        os.Getenv("KEYGATE_ADMIN_JWT_KEY"),
		ValidateRateLimit:  envInt("KEYGATE_VALIDATE_RATE_LIMIT", 30),
		ValidateRateWindow: envDuration("KEYGATE_VALIDATE_RATE_WINDOW", time.Minute),
	}

	if brokers := os.Getenv("KEYGATE_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
