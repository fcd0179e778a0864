package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "brl", cfg.Checkout.Currency)
	assert.Equal(t, "pt-BR", cfg.Checkout.Locale)
	assert.Equal(t, []string{"card", "boleto"}, cfg.Checkout.PaymentMethods)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 15*time.Second, cfg.ProviderTimeout)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=eventtickets sslmode=disable", cfg.DB.DSN())
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("CHECKOUT_PAYMENT_METHODS", "card")
	t.Setenv("PROVIDER_TIMEOUT", "3s")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.True(t, cfg.KafkaEnabled())
	assert.Len(t, cfg.KafkaBrokers, 2)
	assert.Equal(t, []string{"card"}, cfg.Checkout.PaymentMethods)
	assert.Equal(t, 3*time.Second, cfg.ProviderTimeout)
}

func TestParse_RequiresStripeKey(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "")

	_, err := Parse()
	assert.ErrorContains(t, err, "STRIPE_SECRET_KEY")
}
