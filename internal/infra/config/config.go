package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	HTTPAddr            string
	BaseURL             string
	AllowedOrigins      []string
	DatabaseURL         string
	StripeSecretKey     string
	StripeWebhookSecret string
	PriceIDStandard     string
	PriceIDPremium      string
	PriceIDGift         string
	LogLevel            string
	Environment         string
	SessionCacheSize    int
	CronSpecReconcile   string
	TelegramToken       string // optional; sale notifications disabled when empty
	SalesChatID         int64  // optional; required only when TelegramToken is set
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.StripeSecretKey = os.Getenv("STRIPE_SECRET_KEY")
	if cfg.StripeSecretKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY is not set")
	}

	cfg.StripeWebhookSecret = os.Getenv("STRIPE_WEBHOOK_SECRET")
	if cfg.StripeWebhookSecret == "" {
		return nil, fmt.Errorf("STRIPE_WEBHOOK_SECRET is not set")
	}

	cfg.PriceIDStandard = os.Getenv("STRIPE_PRICE_ID_STANDARD")
	if cfg.PriceIDStandard == "" {
		return nil, fmt.Errorf("STRIPE_PRICE_ID_STANDARD is not set")
	}
	cfg.PriceIDPremium = os.Getenv("STRIPE_PRICE_ID_PREMIUM")
	if cfg.PriceIDPremium == "" {
		return nil, fmt.Errorf("STRIPE_PRICE_ID_PREMIUM is not set")
	}
	cfg.PriceIDGift = os.Getenv("STRIPE_PRICE_ID_GIFT")
	if cfg.PriceIDGift == "" {
		return nil, fmt.Errorf("STRIPE_PRICE_ID_GIFT is not set")
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.BaseURL = strings.TrimRight(os.Getenv("BASE_URL"), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.SessionCacheSize = 4096
	if sizeStr := os.Getenv("SESSION_CACHE_SIZE"); sizeStr != "" {
		size, err := strconv.Atoi(sizeStr)
		if err != nil || size <= 0 {
			return nil, fmt.Errorf("invalid SESSION_CACHE_SIZE: %q", sizeStr)
		}
		cfg.SessionCacheSize = size
	}

	cfg.CronSpecReconcile = os.Getenv("CRON_SPEC_RECONCILE")
	if cfg.CronSpecReconcile == "" {
		cfg.CronSpecReconcile = "*/5 * * * *" // Default: every 5 minutes
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken != "" {
		chatIDStr := os.Getenv("SALES_CHAT_ID")
		if chatIDStr == "" {
			return nil, fmt.Errorf("SALES_CHAT_ID is not set but TELEGRAM_TOKEN is")
		}
		chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SALES_CHAT_ID: %w", err)
		}
		cfg.SalesChatID = chatID
	}

	return cfg, nil
}
