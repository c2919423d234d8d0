package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Cloudinary CloudinaryConfig
	Webhook    WebhookConfig
	Billing    BillingConfig
	Commission CommissionConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret string
	Issuer       string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

// WebhookConfig guards the bank-receipt and deposit webhooks. SecretHash is a
// bcrypt hash of the shared secret handed to the payment-review collaborator.
type WebhookConfig struct {
	SecretHash string
}

type BillingConfig struct {
	SubscriptionPriceHalalas int64
	RetentionDiscountPct     int64
	Tier                     string
}

// CommissionRule is the per-category fee policy. RateBps is in basis points;
// CapHalalas == 0 means uncapped.
type CommissionRule struct {
	RateBps    int64
	CapHalalas int64
}

type CommissionConfig struct {
	Rules       map[string]CommissionRule
	DefaultRule CommissionRule
	VATRateBps  int64
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getenv("PORT", "8088"),
			Env:          getenv("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             getenv("DB_DSN", "souqi:souqi@tcp(localhost:3306)/souqi?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret: getenv("JWT_ACCESS_SECRET", "change-me-in-production"),
			Issuer:       getenv("JWT_ISSUER", "souqi"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: getenv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:    getenv("CLOUDINARY_API_KEY", ""),
			APISecret: getenv("CLOUDINARY_API_SECRET", ""),
		},
		Webhook: WebhookConfig{
			// set to the bcrypt hash of the secret shared with the payment collaborator
			SecretHash: getenv("WEBHOOK_SECRET_HASH", ""),
		},
		Billing: BillingConfig{
			SubscriptionPriceHalalas: getenvInt64("SUBSCRIPTION_PRICE_HALALAS", 4900),
			RetentionDiscountPct:     50,
			Tier:                     "ELITE",
		},
		Commission: CommissionConfig{
			Rules: map[string]CommissionRule{
				"Cars":     {RateBps: 100, CapHalalas: 500000},
				"Services": {RateBps: 1000},
			},
			DefaultRule: CommissionRule{RateBps: 100},
			VATRateBps:  1500,
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
