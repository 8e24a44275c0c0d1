// Package config builds runtime configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr            string
	JWTSigningKey   string
	TokenTTL        time.Duration
	AdminCode       string
	DatabaseURL     string
	RedisURL        string
	UploadDir       string
	AuditKafkaAddrs string
	AuditKafkaTopic string
	ShutdownTimeout time.Duration
}

// FromEnv reads configuration from environment variables, applying
// development defaults where a value is absent.
func FromEnv() Server {
	addr := getenv("BALLOTBOX_ADDR", ":8080")

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development fallback; must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	tokenTTL := 15 * time.Minute
	if raw := os.Getenv("TOKEN_TTL_MINUTES"); raw != "" {
		if minutes, err := strconv.Atoi(raw); err == nil && minutes > 0 {
			tokenTTL = time.Duration(minutes) * time.Minute
		}
	}

	return Server{
		Addr:            addr,
		JWTSigningKey:   jwtSigningKey,
		TokenTTL:        tokenTTL,
		AdminCode:       getenv("ADMIN_REGISTRATION_CODE", "letmein-admin"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		UploadDir:       getenv("UPLOAD_DIR", "uploads"),
		AuditKafkaAddrs: os.Getenv("AUDIT_KAFKA_ADDRS"),
		AuditKafkaTopic: getenv("AUDIT_KAFKA_TOPIC", "ballotbox.audit"),
		ShutdownTimeout: 10 * time.Second,
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
