package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries everything the server needs from the environment.
type Config struct {
	Port        string
	DatabaseURL string
	RedisAddr   string
	RedisPass   string

	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
	RefreshTTL     time.Duration

	PasswordPepper string

	SMTPAddr    string
	SMTPFrom    string
	PublicURL   string
	MailEnabled bool
}

func Load() Config {
	return Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", "file::memory:?cache=shared"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:   getEnv("REDIS_PASSWORD", ""),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTIssuer:      getEnv("JWT_ISSUER", "chat-backend"),
		JWTAudience:    getEnv("JWT_AUDIENCE", "chat-frontend"),
		AccessTokenTTL: time.Duration(getEnvAsInt("ACCESS_TOKEN_MINUTES", 15)) * time.Minute,
		RefreshTTL:     time.Duration(getEnvAsInt("REFRESH_TOKEN_DAYS", 30)) * 24 * time.Hour,

		PasswordPepper: getEnv("PASSWORD_PEPPER", ""),

		SMTPAddr:    getEnv("SMTP_ADDR", ""),
		SMTPFrom:    getEnv("SMTP_FROM", "no-reply@localhost"),
		PublicURL:   getEnv("PUBLIC_URL", "http://localhost:8080"),
		MailEnabled: getEnv("SMTP_ADDR", "") != "",
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
