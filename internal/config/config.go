package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                 string
	DatabaseURL          string
	IdentityURL          string
	IdentitySecret       string
	AllowOrigins         []string
	FrontendBaseURL      string
	SecureCookies        bool
	SessionTTL           time.Duration
	SessionRenewalWindow time.Duration
	PasswordResetTTL     time.Duration
	LogstashTCPAddr      string
	SMTPHost             string
	SMTPPort             string
	SMTPUsername         string
	SMTPPassword         string
	SMTPFrom             string
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	return Config{
		Port:                 getenv("PORT", "8080"),
		DatabaseURL:          must("DATABASE_URL"),
		IdentityURL:          must("IDENTITY_URL"),
		IdentitySecret:       getenv("IDENTITY_SECRET", ""),
		AllowOrigins:         splitAndTrim(getenv("ALLOW_ORIGINS", "*")),
		FrontendBaseURL:      getenv("FRONTEND_BASE_URL", ""),
		SecureCookies:        getenv("SECURE_COOKIES", "true") == "true",
		SessionTTL:           duration("SESSION_TTL", 30*24*time.Hour),
		SessionRenewalWindow: duration("SESSION_RENEWAL_WINDOW", 15*24*time.Hour),
		PasswordResetTTL:     duration("PASSWORD_RESET_TTL", 10*time.Minute),
		LogstashTCPAddr:      getenv("LOGSTASH_TCP_ADDR", ""),
		SMTPHost:             getenv("SMTP_HOST", ""),
		SMTPPort:             getenv("SMTP_PORT", ""),
		SMTPUsername:         getenv("SMTP_USERNAME", ""),
		SMTPPassword:         getenv("SMTP_PASSWORD", ""),
		SMTPFrom:             getenv("SMTP_FROM", ""),
	}
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func duration(k string, d time.Duration) time.Duration {
	raw := os.Getenv(k)
	if raw == "" {
		return d
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		log.Printf("Warning: invalid %s %q, using %s", k, raw, d)
		return d
	}
	return v
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
