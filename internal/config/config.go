package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string

	JWTSecret string

	// Bcrypt hash checked by the staff login endpoint.
	StaffEmail        string
	StaffPasswordHash string

	// Address shown on the payment instructions page; bank notification
	// emails are expected to arrive from the customer's own address.
	PaymentInboxAddress string

	ShippingFee      decimal.Decimal
	InboxPollEvery   time.Duration
	SessionTTL       time.Duration
	TempIdentityTTL  time.Duration
	ResubmitCooldown time.Duration
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     os.Getenv("DB_PORT"),
		AppPort:    os.Getenv("APP_PORT"),
		AppEnv:     os.Getenv("APP_ENV"),

		JWTSecret:         os.Getenv("JWT_SECRET"),
		StaffEmail:        os.Getenv("STAFF_EMAIL"),
		StaffPasswordHash: os.Getenv("STAFF_PASSWORD_HASH"),

		PaymentInboxAddress: os.Getenv("PAYMENT_INBOX_ADDRESS"),

		ShippingFee:      envDecimal("SHIPPING_FEE", "5.00"),
		InboxPollEvery:   envDuration("INBOX_POLL_EVERY", 5*time.Minute),
		SessionTTL:       envDuration("CHECKOUT_SESSION_TTL", 2*time.Hour),
		TempIdentityTTL:  envDuration("TEMP_IDENTITY_TTL", 2*time.Hour),
		ResubmitCooldown: envDuration("RESUBMIT_COOLDOWN", 2*time.Minute),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}

func envDecimal(key, fallback string) decimal.Decimal {
	raw := os.Getenv(key)
	if raw == "" {
		raw = fallback
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		log.Fatalf("invalid decimal for %s: %v", key, err)
	}
	return d
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Fatalf("invalid duration for %s: %v", key, err)
	}
	return d
}
