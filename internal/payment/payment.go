// Package payment wraps the external payment provider behind a small
// session-oriented contract.
package payment

import (
	"context"
	"errors"
)

// Status is a checkout session's payment status.
type Status string

const (
	StatusPaid              Status = "paid"
	StatusUnpaid            Status = "unpaid"
	StatusNoPaymentRequired Status = "no_payment_required"
)

// ErrSessionNotFound is returned when the provider does not know a session id.
var ErrSessionNotFound = errors.New("checkout session not found")

// LineItem is one priced line of a checkout session. Either PriceID
// (a price registered at the provider) or Name/UnitAmount/Currency is set.
type LineItem struct {
	PriceID     string
	Name        string
	Description string
	// UnitAmount is in minor currency units.
	UnitAmount int64
	Currency   string
	Quantity   int64
	Metadata   map[string]string
}

// CheckoutRequest describes a hosted checkout session to create.
type CheckoutRequest struct {
	Mode               string
	LineItems          []LineItem
	SuccessURL         string
	CancelURL          string
	CustomerEmail      string
	Metadata           map[string]string
	PaymentMethodTypes []string
	Locale             string
	AllowPromotionCode bool
}

// Session is the provider's view of a checkout session.
type Session struct {
	ID            string
	URL           string
	PaymentStatus Status
	Metadata      map[string]string
}

// Paid reports whether the session's payment has been collected.
func (s Session) Paid() bool {
	return s.PaymentStatus == StatusPaid
}

// Provider creates and inspects checkout sessions.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (Session, error)
	RetrieveSession(ctx context.Context, id string) (Session, error)
	CreatePaymentIntent(ctx context.Context, amount int64, currency string) (clientSecret string, err error)
}
