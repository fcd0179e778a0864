// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every setting the service reads at startup.
type Config struct {
	Port   string `env:"PORT" envDefault:"8080"`
	AppEnv string `env:"APP_ENV" envDefault:"development"`

	DB DBConfig

	Stripe   StripeConfig
	Checkout CheckoutConfig

	StoreTimeout    time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"15s"`

	KafkaBrokers       []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTicketsTopic  string        `env:"KAFKA_TICKETS_TOPIC" envDefault:"tickets.issued"`
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"2s"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name     string `env:"DB_NAME" envDefault:"eventtickets"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// DSN builds a libpq-compatible connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// StripeConfig holds payment provider credentials.
type StripeConfig struct {
	SecretKey string `env:"STRIPE_SECRET_KEY"`
	// APIURL overrides the provider endpoint (stripe-mock, tests).
	APIURL string `env:"STRIPE_API_URL"`
}

// CheckoutConfig holds defaults applied to every checkout session.
type CheckoutConfig struct {
	SuccessURL     string   `env:"STRIPE_SUCCESS_URL" envDefault:"http://localhost:3000/success"`
	CancelURL      string   `env:"STRIPE_CANCEL_URL" envDefault:"http://localhost:3000/cancel"`
	Currency       string   `env:"CHECKOUT_CURRENCY" envDefault:"brl"`
	Locale         string   `env:"CHECKOUT_LOCALE" envDefault:"pt-BR"`
	PaymentMethods []string `env:"CHECKOUT_PAYMENT_METHODS" envSeparator:"," envDefault:"card,boleto"`
}

// KafkaEnabled reports whether issued-ticket notifications should be relayed.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Stripe.SecretKey == "" {
		return errors.New("STRIPE_SECRET_KEY is required")
	}
	if c.Checkout.Currency == "" {
		return errors.New("CHECKOUT_CURRENCY must not be empty")
	}
	if c.StoreTimeout <= 0 || c.ProviderTimeout <= 0 {
		return errors.New("STORE_TIMEOUT and PROVIDER_TIMEOUT must be positive")
	}
	return nil
}
