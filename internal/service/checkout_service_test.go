package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCheckoutService_CreateSession(t *testing.T) {
	provider := newFakeProvider()
	svc := NewCheckoutService(provider, testOptions, testTimeouts, zap.NewNop())

	session, err := svc.CreateSession(context.Background(), CreateSessionInput{
		LineItems: []SessionLine{
			{Price: "price_123"},
			{Name: "Donation", Amount: 1500, Currency: "BRL", Quantity: 2},
		},
		Metadata: map[string]string{"campaign": "spring"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", session.ID)

	require.Len(t, provider.created, 1)
	req := provider.created[0]
	assert.Equal(t, "payment", req.Mode)
	require.Len(t, req.LineItems, 2)
	assert.Equal(t, "price_123", req.LineItems[0].PriceID)
	assert.Equal(t, int64(1), req.LineItems[0].Quantity)
	assert.Equal(t, "Donation", req.LineItems[1].Name)
	assert.Equal(t, int64(1500), req.LineItems[1].UnitAmount)
	assert.Equal(t, "brl", req.LineItems[1].Currency)
	assert.Equal(t, int64(2), req.LineItems[1].Quantity)
	assert.Equal(t, "https://shop.example/success?session_id={CHECKOUT_SESSION_ID}", req.SuccessURL)
	assert.Equal(t, "spring", req.Metadata["campaign"])
}

func TestCheckoutService_CreateSession_Rejections(t *testing.T) {
	tests := []struct {
		name string
		in   CreateSessionInput
	}{
		{"no line items", CreateSessionInput{}},
		{"unknown mode", CreateSessionInput{LineItems: []SessionLine{{Price: "price_1"}}, Mode: "rental"}},
		{"negative quantity", CreateSessionInput{LineItems: []SessionLine{{Price: "price_1", Quantity: -1}}}},
		{"ad-hoc line without amount", CreateSessionInput{LineItems: []SessionLine{{Name: "x", Currency: "brl"}}}},
		{"ad-hoc line without currency", CreateSessionInput{LineItems: []SessionLine{{Name: "x", Amount: 10}}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			provider := newFakeProvider()
			svc := NewCheckoutService(provider, testOptions, testTimeouts, zap.NewNop())
			_, err := svc.CreateSession(context.Background(), tc.in)
			assert.Equal(t, KindInvalidRequest, KindOf(err))
			assert.Empty(t, provider.created)
		})
	}
}

func TestCheckoutService_CreatePaymentIntent(t *testing.T) {
	provider := newFakeProvider()
	svc := NewCheckoutService(provider, testOptions, testTimeouts, zap.NewNop())

	secret, err := svc.CreatePaymentIntent(context.Background(), 2500, " BRL ")
	require.NoError(t, err)
	assert.Equal(t, "pi_2500_brl_secret", secret)

	_, err = svc.CreatePaymentIntent(context.Background(), 0, "brl")
	assert.Equal(t, KindInvalidRequest, KindOf(err))
	_, err = svc.CreatePaymentIntent(context.Background(), 100, "")
	assert.Equal(t, KindInvalidRequest, KindOf(err))
	assert.Equal(t, 1, provider.intents)

	provider.err = errors.New("card_declined")
	_, err = svc.CreatePaymentIntent(context.Background(), 100, "brl")
	assert.Equal(t, KindInternal, KindOf(err))
}
