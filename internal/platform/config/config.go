package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	DatabaseURL   string
	RedisAddr     string
	JWTSigningKey string
	SMTP          SMTP
}

// SMTP configures the outbound mail sender. An empty Host disables email
// delivery (notification rows are still written).
type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// StoreTimeout bounds individual storage transactions; on expiry the
// operation fails closed.
var StoreTimeout = 5 * time.Second

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("SIPRO_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("SIPRO_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	from := os.Getenv("SIPRO_SMTP_FROM")
	if from == "" {
		from = "no-reply@sipro.local"
	}

	return Server{
		Addr:          addr,
		DatabaseURL:   os.Getenv("SIPRO_DATABASE_URL"),
		RedisAddr:     os.Getenv("SIPRO_REDIS_ADDR"),
		JWTSigningKey: jwtSigningKey,
		SMTP: SMTP{
			Host:     os.Getenv("SIPRO_SMTP_HOST"),
			Port:     envDefault("SIPRO_SMTP_PORT", "587"),
			Username: os.Getenv("SIPRO_SMTP_USER"),
			Password: os.Getenv("SIPRO_SMTP_PASSWORD"),
			From:     from,
		},
	}
}

func envDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
