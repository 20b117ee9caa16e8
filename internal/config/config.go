package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Configuration errors surface at startup, never per-request.
var (
	ErrMissingStripeKey = errors.New("STRIPE_SECRET_KEY is not set")
)

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RateLimitPerSec int
	RateLimitBurst  int
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// Timeout bounds every processor call. The processor is an external
	// dependency and must not block a request indefinitely.
	Timeout time.Duration
}

type PaymentsConfig struct {
	DefaultCurrency string
	// MinAmountMinor is expressed in the currency's minor unit.
	MinAmountMinor int64
	// MaxAmountMinor of 0 means no configured upper bound.
	MaxAmountMinor     int64
	RequirePIN         bool
	SupportedCountries []string
}

type KafkaConfig struct {
	Brokers  []string
	GroupID  string
	MockMode bool
}

type RedisConfig struct {
	Addr string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// Config is built once at startup and passed explicitly into each component.
// No package keeps ambient configuration globals.
type Config struct {
	Server   ServerConfig
	Stripe   StripeConfig
	Payments PaymentsConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Database DatabaseConfig
	// Debug controls whether internal fault details reach HTTP responses.
	Debug bool
}

var defaultCountries = []string{
	"US", "CA", "GB", "AU", "NZ", "IE",
	"DE", "FR", "IT", "ES", "NL", "BE", "AT", "CH", "PT",
	"SE", "NO", "DK", "FI",
	"BR", "MX", "CN", "IN", "JP", "SG", "HK", "KR", "AE",
}

// Load reads configuration from the environment. A missing Stripe secret key
// is a fatal configuration error: the service refuses to start rather than
// fail on the first charge.
func Load() (*Config, error) {
	stripeKey := os.Getenv("STRIPE_SECRET_KEY")
	if stripeKey == "" {
		return nil, ErrMissingStripeKey
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvOrDefault("PORT", "8085"),
			ReadTimeout:  getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDurationOrDefault("SERVER_IDLE_TIMEOUT", 60*time.Second),

			RateLimitPerSec: getIntOrDefault("RATE_LIMIT_PER_SEC", 100),
			RateLimitBurst:  getIntOrDefault("RATE_LIMIT_BURST", 100),
		},
		Stripe: StripeConfig{
			SecretKey:     stripeKey,
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			Timeout:       getDurationOrDefault("STRIPE_TIMEOUT", 20*time.Second),
		},
		Payments: PaymentsConfig{
			DefaultCurrency:    strings.ToLower(getEnvOrDefault("DEFAULT_CURRENCY", "usd")),
			MinAmountMinor:     getInt64OrDefault("MIN_AMOUNT_MINOR", 50),
			MaxAmountMinor:     getInt64OrDefault("MAX_AMOUNT_MINOR", 0),
			RequirePIN:         getBool("REQUIRE_CARD_PIN"),
			SupportedCountries: getCountries("SUPPORTED_COUNTRIES"),
		},
		Kafka: KafkaConfig{
			Brokers:  splitAndTrim(getEnvOrDefault("KAFKA_BROKERS", "localhost:29092")),
			GroupID:  getEnvOrDefault("KAFKA_GROUP_ID", "charge-gateway"),
			MockMode: os.Getenv("KAFKA_ENABLED") != "true",
		},
		Redis: RedisConfig{
			Addr: os.Getenv("REDIS_ADDR"),
		},
		Database: DatabaseConfig{
			Host:         getEnvOrDefault("DB_HOST", ""),
			Port:         getEnvOrDefault("DB_PORT", "3306"),
			Username:     getEnvOrDefault("DB_USER", "root"),
			Password:     os.Getenv("DB_PASS"),
			Database:     getEnvOrDefault("DB_NAME", "charge_gateway"),
			MaxOpenConns: getIntOrDefault("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getIntOrDefault("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDurationOrDefault("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Debug: getBool("DEBUG"),
	}

	if cfg.Payments.MinAmountMinor < 1 {
		return nil, fmt.Errorf("MIN_AMOUNT_MINOR must be at least 1, got %d", cfg.Payments.MinAmountMinor)
	}
	if cfg.Server.RateLimitPerSec < 1 {
		return nil, fmt.Errorf("RATE_LIMIT_PER_SEC must be at least 1, got %d", cfg.Server.RateLimitPerSec)
	}
	if cfg.Server.RateLimitBurst < 1 {
		return nil, fmt.Errorf("RATE_LIMIT_BURST must be at least 1, got %d", cfg.Server.RateLimitBurst)
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBool(key string) bool {
	return os.Getenv(key) == "true"
}

func getCountries(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		out := make([]string, len(defaultCountries))
		copy(out, defaultCountries)
		return out
	}
	countries := splitAndTrim(raw)
	for i, c := range countries {
		countries[i] = strings.ToUpper(c)
	}
	return countries
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
