package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port               string
	DatabaseURL        string
	JWTSecret          string
	SchemaPath         string
	CORSAllowedOrigins []string
	BaseURL            string
	AppTimezone        string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPSecure   bool
	FromEmail    string
	FromName     string

	WhatsAppProvider     string
	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioWhatsAppNumber string
	EvolutionAPIURL      string
	EvolutionAPIKey      string
	EvolutionInstance    string
}

func Load() (Config, error) {
	cfg := Config{
		Port:               getEnvOrDefault("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		JWTSecret:          strings.TrimSpace(os.Getenv("JWT_SECRET")),
		SchemaPath:         getEnvOrDefault("DB_SCHEMA_PATH", "db/schema.sql"),
		CORSAllowedOrigins: splitCSVEnv(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
		BaseURL:            getEnvOrDefault("BASE_URL", "http://localhost:8080"),
		AppTimezone:        getEnvOrDefault("APP_TIMEZONE", "America/Sao_Paulo"),

		SMTPHost:     strings.TrimSpace(os.Getenv("SMTP_HOST")),
		SMTPPort:     getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername: strings.TrimSpace(os.Getenv("SMTP_USERNAME")),
		SMTPPassword: normalizeSMTPPassword(firstNonEmpty(os.Getenv("SMTP_PASSWORD"), os.Getenv("smtp_password"))),
		SMTPSecure:   getEnvBool("SMTP_SECURE"),
		FromEmail:    getEnvOrDefault("FROM_EMAIL", "noreply@rebanho.app"),
		FromName:     getEnvOrDefault("FROM_NAME", "Rebanho"),

		WhatsAppProvider:     strings.ToLower(strings.TrimSpace(os.Getenv("WHATSAPP_PROVIDER"))),
		TwilioAccountSID:     strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID")),
		TwilioAuthToken:      strings.TrimSpace(os.Getenv("TWILIO_AUTH_TOKEN")),
		TwilioWhatsAppNumber: strings.TrimSpace(os.Getenv("TWILIO_WHATSAPP_NUMBER")),
		EvolutionAPIURL:      strings.TrimRight(strings.TrimSpace(os.Getenv("EVOLUTION_API_URL")), "/"),
		EvolutionAPIKey:      strings.TrimSpace(os.Getenv("EVOLUTION_API_KEY")),
		EvolutionInstance:    strings.TrimSpace(os.Getenv("EVOLUTION_INSTANCE")),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing required environment variable: DATABASE_URL")
	}

	return cfg, nil
}

func getEnvOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvIntOrDefault(key string, fallback int) int {
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

func getEnvBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "true" || v == "1" || v == "yes"
}

func splitCSVEnv(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		item := strings.TrimSpace(p)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		t := strings.TrimSpace(v)
		if t != "" {
			return t
		}
	}
	return ""
}

// Gmail app passwords are often pasted with spaces.
func normalizeSMTPPassword(v string) string {
	return strings.ReplaceAll(strings.TrimSpace(v), " ", "")
}
