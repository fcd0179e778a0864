package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/metrics"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/model"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/payment"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/repository"
)

// CheckoutOptions are applied to every checkout session the service creates.
type CheckoutOptions struct {
	SuccessURL     string
	CancelURL      string
	Currency       string
	Locale         string
	PaymentMethods []string
}

// BuildOrderInput is a purchaser's request to buy tickets for one event.
type BuildOrderInput struct {
	EventID       int64
	Tickets       []model.BasketLine
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// BuildOrderResult is the created checkout session plus the priced order.
type BuildOrderResult struct {
	SessionID string
	URL       string
	Order     model.PricedOrder
}

// OrderBuilder validates baskets against live inventory, prices them and
// opens a checkout session at the payment provider.
type OrderBuilder struct {
	events   EventReader
	provider payment.Provider
	opts     CheckoutOptions
	timeouts Timeouts
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewOrderBuilder constructs an OrderBuilder.
func NewOrderBuilder(
	events EventReader,
	provider payment.Provider,
	opts CheckoutOptions,
	timeouts Timeouts,
	logger *zap.Logger,
	m *metrics.Metrics,
) *OrderBuilder {
	return &OrderBuilder{
		events:   events,
		provider: provider,
		opts:     opts,
		timeouts: timeouts,
		logger:   logger,
		metrics:  m,
	}
}

// Build validates and prices the basket and creates a checkout session.
// Nothing is reserved: stock is read once here and re-checked at issuance.
func (b *OrderBuilder) Build(ctx context.Context, in BuildOrderInput) (BuildOrderResult, error) {
	res, err := b.build(ctx, in)
	if err != nil {
		b.metrics.OrderBuilt(string(KindOf(err)))
		return BuildOrderResult{}, err
	}
	b.metrics.OrderBuilt("created")
	return res, nil
}

func (b *OrderBuilder) build(ctx context.Context, in BuildOrderInput) (BuildOrderResult, error) {
	event, types, err := b.loadEvent(ctx, in.EventID)
	if err != nil {
		return BuildOrderResult{}, err
	}

	email := strings.TrimSpace(in.CustomerEmail)
	if len(in.Tickets) == 0 {
		return BuildOrderResult{}, invalidf("tickets must be a non-empty list")
	}
	if email == "" {
		return BuildOrderResult{}, invalidf("customerEmail is required")
	}
	if !isValidEmail(email) {
		return BuildOrderResult{}, invalidf("customerEmail is not a valid email address")
	}

	order, err := priceBasket(*event, types, in.Tickets)
	if err != nil {
		return BuildOrderResult{}, err
	}
	order.Currency = b.opts.Currency
	order.CustomerEmail = email

	req, err := b.checkoutRequest(order, descriptions(types), in)
	if err != nil {
		return BuildOrderResult{}, err
	}

	pctx, cancel := withTimeout(ctx, b.timeouts.Provider)
	defer cancel()
	session, err := b.provider.CreateCheckoutSession(pctx, req)
	if err != nil {
		b.logger.Error("create checkout session failed",
			zap.Int64("event_id", event.ID),
			zap.String("total", order.Total.String()),
			zap.Error(err),
		)
		return BuildOrderResult{}, internal("failed to create checkout session", err)
	}

	b.logger.Info("checkout session created",
		zap.String("session_id", session.ID),
		zap.Int64("event_id", event.ID),
		zap.Int("units", order.Units()),
		zap.String("total", order.Total.String()),
	)
	return BuildOrderResult{SessionID: session.ID, URL: session.URL, Order: order}, nil
}

func (b *OrderBuilder) loadEvent(ctx context.Context, eventID int64) (*model.Event, []model.TicketType, error) {
	ctx, cancel := withTimeout(ctx, b.timeouts.Store)
	defer cancel()

	event, err := b.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, notFoundf("event %d not found", eventID)
		}
		b.logger.Error("load event failed", zap.Int64("event_id", eventID), zap.Error(err))
		return nil, nil, internal("failed to load event", err)
	}

	types, err := b.events.ListTicketTypes(ctx, eventID)
	if err != nil {
		b.logger.Error("load ticket types failed", zap.Int64("event_id", eventID), zap.Error(err))
		return nil, nil, internal("failed to load ticket types", err)
	}
	if len(types) == 0 {
		return nil, nil, notFoundf("no ticket types found for event %d", eventID)
	}
	return event, types, nil
}

// priceBasket validates every line against the event's ticket types and
// current stock, in basket order, and totals the order.
func priceBasket(event model.Event, types []model.TicketType, basket []model.BasketLine) (model.PricedOrder, error) {
	byID := make(map[int64]model.TicketType, len(types))
	for _, tt := range types {
		byID[tt.ID] = tt
	}

	order := model.PricedOrder{Event: event, Total: decimal.Zero}
	seen := make(map[int64]bool, len(basket))
	for i, line := range basket {
		if line.TicketTypeID <= 0 || line.Quantity <= 0 {
			return model.PricedOrder{}, invalidf("ticket %d must have a valid ticketTypeId and a positive quantity", i+1)
		}
		tt, ok := byID[line.TicketTypeID]
		if !ok {
			return model.PricedOrder{}, invalidf("ticket type %d not found for event %d", line.TicketTypeID, event.ID)
		}
		if seen[line.TicketTypeID] {
			return model.PricedOrder{}, invalidf("ticket type %d appears more than once", line.TicketTypeID)
		}
		seen[line.TicketTypeID] = true

		if line.Quantity > tt.Quantity {
			return model.PricedOrder{}, invalidf(
				"requested quantity (%d) exceeds available stock (%d) for %s",
				line.Quantity, tt.Quantity, tt.Name,
			)
		}

		lineTotal := tt.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		order.Lines = append(order.Lines, model.LineDetail{
			TicketTypeID:   tt.ID,
			TicketTypeName: tt.Name,
			Quantity:       line.Quantity,
			UnitPrice:      tt.Price,
			TotalPrice:     lineTotal,
		})
		order.Total = order.Total.Add(lineTotal)
	}

	if !order.Total.IsPositive() {
		return model.PricedOrder{}, invalidf("total amount must be greater than zero")
	}
	return order, nil
}

// minorUnits converts a price to the provider's integer minor units,
// rounding half up.
func minorUnits(price decimal.Decimal) int64 {
	return price.Shift(2).Round(0).IntPart()
}

func (b *OrderBuilder) checkoutRequest(order model.PricedOrder, desc map[int64]string, in BuildOrderInput) (payment.CheckoutRequest, error) {
	md, err := model.NewOrderMetadata(order).Encode()
	if err != nil {
		if errors.Is(err, model.ErrMetadataTooLarge) {
			return payment.CheckoutRequest{}, invalidf("order is too large for a single checkout; split it into smaller orders")
		}
		return payment.CheckoutRequest{}, internal("failed to encode order", err)
	}

	eventID := strconv.FormatInt(order.Event.ID, 10)
	items := make([]payment.LineItem, 0, len(order.Lines))
	for _, l := range order.Lines {
		items = append(items, payment.LineItem{
			Name:        fmt.Sprintf("%s - %s", order.Event.Name, l.TicketTypeName),
			Description: desc[l.TicketTypeID],
			UnitAmount:  minorUnits(l.UnitPrice),
			Currency:    order.Currency,
			Quantity:    int64(l.Quantity),
			Metadata: map[string]string{
				"eventId":      eventID,
				"ticketTypeId": strconv.FormatInt(l.TicketTypeID, 10),
				"eventName":    order.Event.Name,
			},
		})
	}

	successURL := in.SuccessURL
	if successURL == "" {
		successURL = b.opts.SuccessURL
	}
	cancelURL := in.CancelURL
	if cancelURL == "" {
		cancelURL = b.opts.CancelURL
	}

	return payment.CheckoutRequest{
		LineItems:          items,
		SuccessURL:         appendQuery(successURL, "session_id={CHECKOUT_SESSION_ID}&event_id="+eventID),
		CancelURL:          cancelURL,
		CustomerEmail:      order.CustomerEmail,
		Metadata:           md,
		PaymentMethodTypes: b.opts.PaymentMethods,
		Locale:             b.opts.Locale,
		AllowPromotionCode: true,
	}, nil
}

func descriptions(types []model.TicketType) map[int64]string {
	out := make(map[int64]string, len(types))
	for _, tt := range types {
		out[tt.ID] = tt.Description
	}
	return out
}
