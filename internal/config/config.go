package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port string
	Mode string

	// Database configuration
	DatabaseURL string

	// Redis configuration
	RedisURL string

	// Brevo email configuration
	BrevoAPIKey    string
	BrevoFromEmail string
	BrevoFromName  string

	// Optional shared key guarding the webhook route
	WebhookAPIKey string

	ServiceName string
}

var AppConfig *Config

func InitConfig() error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env file doesn't exist
	}

	AppConfig = &Config{
		Port:           getEnv("PORT", "8080"),
		Mode:           getEnv("GIN_MODE", "debug"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisURL:       getEnv("REDIS_URL", ""),
		BrevoAPIKey:    getEnv("BREVO_API_KEY", ""),
		BrevoFromEmail: getEnv("BREVO_FROM_EMAIL", ""),
		BrevoFromName:  getEnv("BREVO_FROM_NAME", "Payment Notifications"),
		WebhookAPIKey:  getEnv("WEBHOOK_API_KEY", ""),
		ServiceName:    getEnv("SERVICE_NAME", "Payment Webhook Handler"),
	}

	return nil
}

// ForwardingConfig holds the upstream forwarding settings. It is read fresh
// from the environment on every request, so flag or secret changes take
// effect without a restart and handlers stay testable without shared state.
type ForwardingConfig struct {
	Enabled      bool
	APIURL       string
	AESKey       string
	BizToken     string
	UseHash      bool
	ClientID     string
	ClientSecret string
}

// LoadForwarding snapshots the forwarding environment at request time.
// Forwarding is enabled only when either flag is the literal string "true".
func LoadForwarding() ForwardingConfig {
	return ForwardingConfig{
		Enabled: os.Getenv("PAYMENT_WEBHOOK_FORWARD_ENABLED") == "true" ||
			os.Getenv("PL_FORWARD_ENABLED") == "true",
		APIURL:       os.Getenv("PL_API_URL"),
		AESKey:       os.Getenv("PL_AES_KEY"),
		BizToken:     os.Getenv("PL_X_BIZ_TOKEN"),
		UseHash:      os.Getenv("PL_USE_HASH") == "true",
		ClientID:     os.Getenv("PL_CLIENT_ID"),
		ClientSecret: os.Getenv("PL_CLIENT_SECRET"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
