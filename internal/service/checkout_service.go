package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/payment"
)

// SessionLine is one line of a pass-through checkout session: either a
// provider price id, or an ad-hoc name/amount/currency.
type SessionLine struct {
	Price    string
	Name     string
	Amount   int64
	Currency string
	Quantity int64
}

// CreateSessionInput is a checkout session not tied to event inventory.
type CreateSessionInput struct {
	LineItems     []SessionLine
	Mode          string
	CustomerEmail string
	Metadata      map[string]string
	SuccessURL    string
	CancelURL     string
}

var checkoutModes = map[string]bool{"payment": true, "subscription": true, "setup": true}

// CheckoutService forwards generic checkout requests to the payment provider.
type CheckoutService struct {
	provider payment.Provider
	opts     CheckoutOptions
	timeouts Timeouts
	logger   *zap.Logger
}

// NewCheckoutService constructs a CheckoutService.
func NewCheckoutService(provider payment.Provider, opts CheckoutOptions, timeouts Timeouts, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{provider: provider, opts: opts, timeouts: timeouts, logger: logger}
}

// CreateSession opens a checkout session for arbitrary line items.
func (s *CheckoutService) CreateSession(ctx context.Context, in CreateSessionInput) (payment.Session, error) {
	if len(in.LineItems) == 0 {
		return payment.Session{}, invalidf("lineItems is required and must not be empty")
	}
	mode := in.Mode
	if mode == "" {
		mode = "payment"
	}
	if !checkoutModes[mode] {
		return payment.Session{}, invalidf("unsupported mode %q", mode)
	}

	items := make([]payment.LineItem, 0, len(in.LineItems))
	for i, li := range in.LineItems {
		qty := li.Quantity
		if qty == 0 {
			qty = 1
		}
		if qty < 0 {
			return payment.Session{}, invalidf("lineItems[%d]: quantity must be positive", i)
		}
		if li.Price != "" {
			items = append(items, payment.LineItem{PriceID: li.Price, Quantity: qty})
			continue
		}
		if strings.TrimSpace(li.Name) == "" || li.Amount <= 0 || li.Currency == "" {
			return payment.Session{}, invalidf("lineItems[%d]: either price or name, amount and currency are required", i)
		}
		items = append(items, payment.LineItem{
			Name:       li.Name,
			UnitAmount: li.Amount,
			Currency:   strings.ToLower(li.Currency),
			Quantity:   qty,
		})
	}

	successURL := in.SuccessURL
	if successURL == "" {
		successURL = s.opts.SuccessURL
	}
	cancelURL := in.CancelURL
	if cancelURL == "" {
		cancelURL = s.opts.CancelURL
	}

	ctx, cancel := withTimeout(ctx, s.timeouts.Provider)
	defer cancel()
	session, err := s.provider.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		Mode:               mode,
		LineItems:          items,
		SuccessURL:         appendQuery(successURL, "session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:          cancelURL,
		CustomerEmail:      strings.TrimSpace(in.CustomerEmail),
		Metadata:           in.Metadata,
		PaymentMethodTypes: s.opts.PaymentMethods,
		AllowPromotionCode: true,
	})
	if err != nil {
		s.logger.Error("create checkout session failed", zap.Int("line_items", len(items)), zap.Error(err))
		return payment.Session{}, internal("failed to create checkout session", err)
	}
	return session, nil
}

// CreatePaymentIntent creates a payment intent for client-side collection
// and returns its client secret.
func (s *CheckoutService) CreatePaymentIntent(ctx context.Context, amount int64, currency string) (string, error) {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if amount <= 0 {
		return "", invalidf("amount must be a positive number of minor currency units")
	}
	if currency == "" {
		return "", invalidf("currency is required")
	}

	ctx, cancel := withTimeout(ctx, s.timeouts.Provider)
	defer cancel()
	secret, err := s.provider.CreatePaymentIntent(ctx, amount, currency)
	if err != nil {
		s.logger.Error("create payment intent failed", zap.Int64("amount", amount), zap.String("currency", currency), zap.Error(err))
		return "", internal("failed to create payment intent", err)
	}
	return secret, nil
}
