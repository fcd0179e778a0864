package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
)

// StripeProvider implements Provider with Stripe Checkout.
type StripeProvider struct {
	api *client.API
}

// NewStripeProvider builds a provider authenticated with secretKey. A
// non-empty apiURL points the client at another endpoint such as stripe-mock.
func NewStripeProvider(secretKey, apiURL string) *StripeProvider {
	var backends *stripe.Backends
	if apiURL != "" {
		backends = &stripe.Backends{
			API: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
				URL:               stripe.String(apiURL),
				MaxNetworkRetries: stripe.Int64(0),
			}),
		}
	}
	return &StripeProvider{api: client.New(secretKey, backends)}
}

// CreateCheckoutSession creates a hosted checkout session.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (Session, error) {
	mode := req.Mode
	if mode == "" {
		mode = string(stripe.CheckoutSessionModePayment)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:                stripe.String(mode),
		SuccessURL:          stripe.String(req.SuccessURL),
		CancelURL:           stripe.String(req.CancelURL),
		AllowPromotionCodes: stripe.Bool(req.AllowPromotionCode),
	}
	params.Context = ctx
	if len(req.PaymentMethodTypes) > 0 {
		params.PaymentMethodTypes = stripe.StringSlice(req.PaymentMethodTypes)
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if req.Locale != "" {
		params.Locale = stripe.String(req.Locale)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	for _, item := range req.LineItems {
		params.LineItems = append(params.LineItems, lineItemParams(item))
	}

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("stripe create checkout session: %w", err)
	}
	return sessionFromStripe(s), nil
}

// RetrieveSession fetches a checkout session with its payment status and metadata.
func (p *StripeProvider) RetrieveSession(ctx context.Context, id string) (Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := p.api.CheckoutSessions.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) &&
			(stripeErr.HTTPStatusCode == http.StatusNotFound || stripeErr.Code == stripe.ErrorCodeResourceMissing) {
			return Session{}, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
		}
		return Session{}, fmt.Errorf("stripe retrieve checkout session: %w", err)
	}
	return sessionFromStripe(s), nil
}

// CreatePaymentIntent creates a payment intent with automatic payment
// methods and returns its client secret.
func (p *StripeProvider) CreatePaymentIntent(ctx context.Context, amount int64, currency string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create payment intent: %w", err)
	}
	return pi.ClientSecret, nil
}

func lineItemParams(item LineItem) *stripe.CheckoutSessionLineItemParams {
	qty := item.Quantity
	if qty <= 0 {
		qty = 1
	}
	li := &stripe.CheckoutSessionLineItemParams{Quantity: stripe.Int64(qty)}
	if item.PriceID != "" {
		li.Price = stripe.String(item.PriceID)
		return li
	}

	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(item.Name),
	}
	if item.Description != "" {
		product.Description = stripe.String(item.Description)
	}
	if len(item.Metadata) > 0 {
		product.Metadata = item.Metadata
	}
	li.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
		Currency:    stripe.String(item.Currency),
		UnitAmount:  stripe.Int64(item.UnitAmount),
		ProductData: product,
	}
	return li
}

func sessionFromStripe(s *stripe.CheckoutSession) Session {
	return Session{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: Status(s.PaymentStatus),
		Metadata:      s.Metadata,
	}
}
