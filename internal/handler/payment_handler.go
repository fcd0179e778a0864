package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/model"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/payment"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/service"
)

// OrderBuilder opens checkout sessions for event baskets.
type OrderBuilder interface {
	Build(ctx context.Context, in service.BuildOrderInput) (service.BuildOrderResult, error)
}

// Reconciler issues tickets for paid sessions.
type Reconciler interface {
	Reconcile(ctx context.Context, in service.ReconcileInput) (service.ReconcileResult, error)
}

// Checkout is the generic pass-through to the payment provider.
type Checkout interface {
	CreateSession(ctx context.Context, in service.CreateSessionInput) (payment.Session, error)
	CreatePaymentIntent(ctx context.Context, amount int64, currency string) (string, error)
}

// PaymentHandler serves the checkout and issuance endpoints.
type PaymentHandler struct {
	orders     OrderBuilder
	reconciler Reconciler
	checkout   Checkout
	logger     *zap.Logger
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(orders OrderBuilder, reconciler Reconciler, checkout Checkout, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{orders: orders, reconciler: reconciler, checkout: checkout, logger: logger}
}

// ─── Wire types ───────────────────────────────────────────────────────────────

type buildOrderRequest struct {
	EventID       int64              `json:"eventId"`
	Tickets       []model.BasketLine `json:"tickets"`
	CustomerEmail string             `json:"customerEmail"`
	SuccessURL    string             `json:"successUrl"`
	CancelURL     string             `json:"cancelUrl"`
}

type orderEvent struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	DateTime time.Time `json:"dateTime"`
	Location string    `json:"location"`
}

type buildOrderResponse struct {
	ID          string             `json:"id"`
	URL         string             `json:"url"`
	Event       orderEvent         `json:"event"`
	Tickets     []model.LineDetail `json:"tickets"`
	TotalAmount decimal.Decimal    `json:"totalAmount"`
	Currency    string             `json:"currency"`
}

type confirmPaymentRequest struct {
	SessionID   string `json:"sessionId"`
	AssociateID string `json:"associateId"`
}

type issuedTicket struct {
	ID             string `json:"id"`
	TicketTypeID   int64  `json:"ticketTypeId"`
	TicketTypeName string `json:"ticketTypeName"`
	QRCodeID       string `json:"qrCodeId"`
}

type confirmPaymentResponse struct {
	Message          string             `json:"message"`
	SessionID        string             `json:"sessionId"`
	Tickets          []issuedTicket     `json:"tickets"`
	Event            model.EventSummary `json:"event"`
	AlreadyProcessed bool               `json:"alreadyProcessed"`
}

type sessionLineItem struct {
	Price    string `json:"price"`
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Quantity int64  `json:"quantity"`
}

type createSessionRequest struct {
	LineItems     []sessionLineItem `json:"lineItems"`
	Mode          string            `json:"mode"`
	CustomerEmail string            `json:"customerEmail"`
	Metadata      map[string]string `json:"metadata"`
	SuccessURL    string            `json:"successUrl"`
	CancelURL     string            `json:"cancelUrl"`
}

type sessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type paymentIntentRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type paymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// CreateEventCheckout handles POST /payment/create-event-checkout
// Prices the basket and returns the hosted checkout URL.
func (h *PaymentHandler) CreateEventCheckout(w http.ResponseWriter, r *http.Request) {
	var req buildOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	res, err := h.orders.Build(r.Context(), service.BuildOrderInput{
		EventID:       req.EventID,
		Tickets:       req.Tickets,
		CustomerEmail: req.CustomerEmail,
		SuccessURL:    req.SuccessURL,
		CancelURL:     req.CancelURL,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	ev := res.Order.Event
	writeJSON(w, http.StatusOK, buildOrderResponse{
		ID:          res.SessionID,
		URL:         res.URL,
		Event:       orderEvent{ID: ev.ID, Name: ev.Name, DateTime: ev.DateTime, Location: ev.Location},
		Tickets:     res.Order.Lines,
		TotalAmount: res.Order.Total,
		Currency:    res.Order.Currency,
	})
}

// ConfirmPayment handles POST /payment/confirm-payment
// Safe to call any number of times for the same session.
func (h *PaymentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	res, err := h.reconciler.Reconcile(r.Context(), service.ReconcileInput{
		SessionID:   req.SessionID,
		AssociateID: req.AssociateID,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	tickets := make([]issuedTicket, 0, len(res.Tickets))
	for _, t := range res.Tickets {
		tickets = append(tickets, issuedTicket{
			ID:             t.ID,
			TicketTypeID:   t.TicketTypeID,
			TicketTypeName: t.TicketTypeName,
			QRCodeID:       t.QRCodeID,
		})
	}

	status, msg := http.StatusCreated, "payment confirmed and tickets issued"
	if res.AlreadyProcessed {
		status, msg = http.StatusOK, "tickets already issued for this session"
	}
	writeJSON(w, status, confirmPaymentResponse{
		Message:          msg,
		SessionID:        res.SessionID,
		Tickets:          tickets,
		Event:            res.Event,
		AlreadyProcessed: res.AlreadyProcessed,
	})
}

// CreateCheckoutSession handles POST /payment/create-checkout-session
func (h *PaymentHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	lines := make([]service.SessionLine, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		lines = append(lines, service.SessionLine{
			Price:    li.Price,
			Name:     li.Name,
			Amount:   li.Amount,
			Currency: li.Currency,
			Quantity: li.Quantity,
		})
	}

	session, err := h.checkout.CreateSession(r.Context(), service.CreateSessionInput{
		LineItems:     lines,
		Mode:          req.Mode,
		CustomerEmail: req.CustomerEmail,
		Metadata:      req.Metadata,
		SuccessURL:    req.SuccessURL,
		CancelURL:     req.CancelURL,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{ID: session.ID, URL: session.URL})
}

// CreatePaymentIntent handles POST /payment/create-payment-intent
func (h *PaymentHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req paymentIntentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	secret, err := h.checkout.CreatePaymentIntent(r.Context(), req.Amount, req.Currency)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, paymentIntentResponse{ClientSecret: secret})
}
