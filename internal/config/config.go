package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	postgres "github.com/shortformfactory/checkout-service/internal/storage/postgres"
)

// Config aggregates runtime configuration grouped by concern.
type Config struct {
	ServiceName string
	SiteOrigin  string
	HTTP        HTTPConfig
	PayPal      PayPalConfig
	Restate     RestateConfig
	Kafka       KafkaConfig
	Database    postgres.DatabaseConfig
	Email       EmailConfig
}

type HTTPConfig struct {
	Addr string
}

type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	Mode         string // "sandbox" or "live"
	WebhookID    string // empty disables signature verification
}

type RestateConfig struct {
	ListenAddr string
	RuntimeURL string
}

type KafkaConfig struct {
	Brokers          []string
	SettlementsTopic string
	EmailGroup       string
}

type EmailConfig struct {
	SMTPHost string
	SMTPPort string
	From     string
	Password string
}

// Load reads configuration from environment variables, applying sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		ServiceName: getEnv("SERVICE_NAME", "checkout-service"),
		SiteOrigin:  getEnv("SITE_ORIGIN", ""),
		HTTP: HTTPConfig{
			Addr: getEnv("HTTP_LISTEN_ADDR", ":3000"),
		},
		PayPal: PayPalConfig{
			ClientID:     getEnv("PAYPAL_CLIENT_ID", ""),
			ClientSecret: getEnv("PAYPAL_CLIENT_SECRET", ""),
			Mode:         getEnv("PAYPAL_MODE", "sandbox"),
			WebhookID:    getEnv("PAYPAL_WEBHOOK_ID", ""),
		},
		Restate: RestateConfig{
			ListenAddr: getEnv("RESTATE_LISTEN_ADDR", ":9081"),
			RuntimeURL: getEnv("RESTATE_RUNTIME_URL", "http://127.0.0.1:8080"),
		},
		Kafka: KafkaConfig{
			Brokers:          splitAndTrim(getEnv("KAFKA_BROKERS", "localhost:9092")),
			SettlementsTopic: getEnv("KAFKA_SETTLEMENTS_TOPIC", "settlements.v1"),
			EmailGroup:       getEnv("KAFKA_EMAIL_GROUP_ID", "email-workers"),
		},
		Email: EmailConfig{
			SMTPHost: getEnv("SMTP_HOST", ""),
			SMTPPort: getEnv("SMTP_PORT", "587"),
			From:     getEnv("SMTP_FROM", "orders@shortformfactory.com"),
			Password: getEnv("SMTP_PASSWORD", ""),
		},
	}

	portStr := getEnv("LEDGER_DB_PORT", "5432")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Config{}, fmt.Errorf("parse LEDGER_DB_PORT: %w", err)
	}

	cfg.Database = postgres.DatabaseConfig{
		Host:     getEnv("LEDGER_DB_HOST", "localhost"),
		Port:     port,
		Database: getEnv("LEDGER_DB_NAME", "checkout"),
		User:     getEnv("LEDGER_DB_USER", "checkoutadmin"),
		Password: getEnv("LEDGER_DB_PASSWORD", ""),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
