package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	HTTP     HTTPConfig
	Auth     AuthConfig
	Payment  PaymentConfig
	Kafka    KafkaConfig
	Mail     MailConfig
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Path string // SQLite database file path
}

// HTTPConfig contains HTTP server settings.
type HTTPConfig struct {
	Address string // listen address (e.g., ":8080")
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret string // JWT signing secret
}

// PaymentConfig contains payment gateway settings.
type PaymentConfig struct {
	BaseURL   string        // gateway API base URL
	SecretKey string        // gateway API key
	Timeout   time.Duration // bound on initialize/verify calls
}

// KafkaConfig contains event pipeline settings.
type KafkaConfig struct {
	Brokers []string
	Topic   string // order events topic consumed by the mailer
}

// MailConfig contains outbound email settings.
type MailConfig struct {
	SMTPAddr string // host:port of the SMTP relay
	From     string
}

// Load loads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := defaults()
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set; required for production")
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but uses a safe default for JWT_SECRET in development.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	cfg := defaults()
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "dev-secret-change-me"
	}
	return cfg, nil
}

func defaults() *Config {
	timeoutSec, _ := getEnvInt("PAYMENT_TIMEOUT_SECONDS", 10)
	return &Config{
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "app.db"),
		},
		HTTP: HTTPConfig{
			Address: getEnv("HTTP_ADDRESS", ":8080"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Payment: PaymentConfig{
			BaseURL:   getEnv("PAYMENT_BASE_URL", "https://api.paystack.co"),
			SecretKey: getEnv("PAYMENT_SECRET_KEY", ""),
			Timeout:   time.Duration(timeoutSec) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			Topic:   getEnv("KAFKA_TOPIC", "order_events"),
		},
		Mail: MailConfig{
			SMTPAddr: getEnv("SMTP_ADDR", "localhost:25"),
			From:     getEnv("MAIL_FROM", "orders@example.com"),
		},
	}
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{DB: %s, HTTP: %s, Kafka: %v/%s, Auth: *** (masked) ***}",
		c.Database.Path, c.HTTP.Address, c.Kafka.Brokers, c.Kafka.Topic)
}
