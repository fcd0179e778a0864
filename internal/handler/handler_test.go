package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/metrics"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/model"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/payment"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/service"
)

type stubCatalog struct {
	event   *model.Event
	types   []model.TicketType
	err     error
	gotID   int64
	created model.CreateEventRequest
}

func (s *stubCatalog) CreateEvent(_ context.Context, req model.CreateEventRequest) (*model.Event, error) {
	s.created = req
	return s.event, s.err
}

func (s *stubCatalog) ListEvents(context.Context) ([]model.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.event == nil {
		return nil, nil
	}
	return []model.Event{*s.event}, nil
}

func (s *stubCatalog) GetEvent(_ context.Context, id int64) (*model.Event, error) {
	s.gotID = id
	return s.event, s.err
}

func (s *stubCatalog) CreateTicketType(_ context.Context, eventID int64, req model.CreateTicketTypeRequest) (*model.TicketType, error) {
	s.gotID = eventID
	if s.err != nil {
		return nil, s.err
	}
	return &model.TicketType{ID: 1, EventID: eventID, Name: req.Name, Price: req.Price, Quantity: req.Quantity}, nil
}

func (s *stubCatalog) ListTicketTypes(_ context.Context, eventID int64) ([]model.TicketType, error) {
	s.gotID = eventID
	return s.types, s.err
}

type stubOrders struct {
	in  service.BuildOrderInput
	res service.BuildOrderResult
	err error
}

func (s *stubOrders) Build(_ context.Context, in service.BuildOrderInput) (service.BuildOrderResult, error) {
	s.in = in
	return s.res, s.err
}

type stubReconciler struct {
	in  service.ReconcileInput
	res service.ReconcileResult
	err error
}

func (s *stubReconciler) Reconcile(_ context.Context, in service.ReconcileInput) (service.ReconcileResult, error) {
	s.in = in
	return s.res, s.err
}

type stubCheckout struct {
	in      service.CreateSessionInput
	session payment.Session
	secret  string
	err     error
}

func (s *stubCheckout) CreateSession(_ context.Context, in service.CreateSessionInput) (payment.Session, error) {
	s.in = in
	return s.session, s.err
}

func (s *stubCheckout) CreatePaymentIntent(context.Context, int64, string) (string, error) {
	return s.secret, s.err
}

type testServer struct {
	router     http.Handler
	catalog    *stubCatalog
	orders     *stubOrders
	reconciler *stubReconciler
	checkout   *stubCheckout
	metrics    *metrics.Metrics
}

func newTestServer() *testServer {
	ts := &testServer{
		catalog:    &stubCatalog{},
		orders:     &stubOrders{},
		reconciler: &stubReconciler{},
		checkout:   &stubCheckout{},
		metrics:    metrics.New(),
	}
	logger := zap.NewNop()
	ts.router = NewRouter(RouterConfig{
		Events:      NewEventHandler(ts.catalog, logger),
		Payments:    NewPaymentHandler(ts.orders, ts.reconciler, ts.checkout, logger),
		Logger:      logger,
		Metrics:     ts.metrics,
		CORSOrigins: []string{"*"},
	})
	return ts
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateEventCheckout(t *testing.T) {
	ts := newTestServer()
	ts.orders.res = service.BuildOrderResult{
		SessionID: "cs_test_1",
		URL:       "https://checkout.example/1",
		Order: model.PricedOrder{
			Event: model.Event{ID: 1, Name: "Rock Fest", Location: "Arena"},
			Lines: []model.LineDetail{{
				TicketTypeID: 10, TicketTypeName: "VIP", Quantity: 2,
				UnitPrice: decimal.RequireFromString("50"), TotalPrice: decimal.RequireFromString("100"),
			}},
			Total:    decimal.RequireFromString("100"),
			Currency: "brl",
		},
	}

	rec := ts.do(http.MethodPost, "/payment/create-event-checkout",
		`{"eventId":1,"tickets":[{"ticketTypeId":10,"quantity":2}],"customerEmail":"ana@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, service.BuildOrderInput{
		EventID:       1,
		Tickets:       []model.BasketLine{{TicketTypeID: 10, Quantity: 2}},
		CustomerEmail: "ana@example.com",
	}, ts.orders.in)

	body := decodeBody(t, rec)
	assert.Equal(t, "cs_test_1", body["id"])
	assert.Equal(t, "https://checkout.example/1", body["url"])
	assert.Equal(t, "100", body["totalAmount"])
	assert.Equal(t, "brl", body["currency"])
	event := body["event"].(map[string]any)
	assert.Equal(t, "Rock Fest", event["name"])
	assert.Equal(t, "Arena", event["location"])
	assert.Len(t, body["tickets"], 1)
}

func TestConfirmPayment(t *testing.T) {
	tickets := []model.Ticket{
		{ID: "t-1", TicketTypeID: 10, TicketTypeName: "VIP", QRCodeID: "cs_1_10_0", AssociateID: "u"},
		{ID: "t-2", TicketTypeID: 10, TicketTypeName: "VIP", QRCodeID: "cs_1_10_1", AssociateID: "u"},
	}

	tests := []struct {
		name           string
		body           string
		result         service.ReconcileResult
		serviceErr     error
		expectedStatus int
		expectedCode   string
		expectedSubstr string
	}{
		{
			name:           "issued",
			body:           `{"sessionId":"cs_1","associateId":"u"}`,
			result:         service.ReconcileResult{SessionID: "cs_1", Tickets: tickets, Event: model.EventSummary{ID: 1, Name: "Rock Fest"}},
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"qrCodeId":"cs_1_10_1"`,
		},
		{
			name:           "already processed",
			body:           `{"sessionId":"cs_1","associateId":"u"}`,
			result:         service.ReconcileResult{SessionID: "cs_1", Tickets: tickets, AlreadyProcessed: true},
			expectedStatus: http.StatusOK,
			expectedSubstr: `"alreadyProcessed":true`,
		},
		{
			name:           "unpaid",
			body:           `{"sessionId":"cs_1","associateId":"u"}`,
			serviceErr:     &service.Error{Kind: service.KindPaymentNotConfirmed, Message: "payment not confirmed"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "payment_not_confirmed",
		},
		{
			name:           "unknown session",
			body:           `{"sessionId":"cs_x","associateId":"u"}`,
			serviceErr:     &service.Error{Kind: service.KindNotFound, Message: "checkout session cs_x not found"},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "not_found",
		},
		{
			name:           "sold out at issuance",
			body:           `{"sessionId":"cs_1","associateId":"u"}`,
			serviceErr:     &service.Error{Kind: service.KindStockExhausted, Message: "ticket type 10 sold out"},
			expectedStatus: http.StatusConflict,
			expectedCode:   "stock_exhausted",
		},
		{
			name:           "internal error hides cause",
			body:           `{"sessionId":"cs_1","associateId":"u"}`,
			serviceErr:     &service.Error{Kind: service.KindInternal, Message: "failed to issue tickets", Err: errors.New("pq: secret detail")},
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "internal_error",
		},
		{
			name:           "unknown field",
			body:           `{"sessionId":"cs_1","associateId":"u","extra":1}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "invalid_request",
		},
		{
			name:           "malformed json",
			body:           `{"sessionId":`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			ts.reconciler.res = tt.result
			ts.reconciler.err = tt.serviceErr

			rec := ts.do(http.MethodPost, "/payment/confirm-payment", tt.body)
			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeBody(t, rec)["code"])
			}
			if tt.expectedSubstr != "" {
				assert.Contains(t, rec.Body.String(), tt.expectedSubstr)
			}
			assert.NotContains(t, rec.Body.String(), "secret detail")
		})
	}
}

func TestConfirmPayment_PassesInput(t *testing.T) {
	ts := newTestServer()
	ts.reconciler.res = service.ReconcileResult{SessionID: "cs_1"}

	rec := ts.do(http.MethodPost, "/payment/confirm-payment", `{"sessionId":"cs_1","associateId":"user-9"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, service.ReconcileInput{SessionID: "cs_1", AssociateID: "user-9"}, ts.reconciler.in)
	assert.Equal(t, []any{}, decodeBody(t, rec)["tickets"])
}

func TestCreateCheckoutSession(t *testing.T) {
	ts := newTestServer()
	ts.checkout.session = payment.Session{ID: "cs_2", URL: "https://checkout.example/2"}

	rec := ts.do(http.MethodPost, "/payment/create-checkout-session",
		`{"lineItems":[{"price":"price_123","quantity":2}],"mode":"payment"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"id":"cs_2","url":"https://checkout.example/2"}`, rec.Body.String())
	require.Len(t, ts.checkout.in.LineItems, 1)
	assert.Equal(t, "price_123", ts.checkout.in.LineItems[0].Price)
	assert.Equal(t, int64(2), ts.checkout.in.LineItems[0].Quantity)
}

func TestCreatePaymentIntent(t *testing.T) {
	ts := newTestServer()
	ts.checkout.secret = "pi_1_secret"

	rec := ts.do(http.MethodPost, "/payment/create-payment-intent", `{"amount":1000,"currency":"brl"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"clientSecret":"pi_1_secret"}`, rec.Body.String())

	ts.checkout.err = &service.Error{Kind: service.KindInvalidRequest, Message: "amount must be positive"}
	rec = ts.do(http.MethodPost, "/payment/create-payment-intent", `{"amount":0,"currency":"brl"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventRoutes(t *testing.T) {
	ts := newTestServer()
	ts.catalog.event = &model.Event{ID: 7, Name: "Jazz Night", DateTime: time.Date(2026, 11, 1, 21, 0, 0, 0, time.UTC)}
	ts.catalog.types = []model.TicketType{{ID: 1, EventID: 7, Name: "General", Price: decimal.RequireFromString("25.50"), Quantity: 3}}

	rec := ts.do(http.MethodGet, "/events/7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), ts.catalog.gotID)
	assert.Equal(t, "Jazz Night", decodeBody(t, rec)["name"])

	rec = ts.do(http.MethodGet, "/events/7/ticket-types", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"price":"25.5"`)

	rec = ts.do(http.MethodGet, "/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Jazz Night")

	rec = ts.do(http.MethodPost, "/events/7/ticket-types", `{"name":"VIP","price":"50.00","quantity":10}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"quantity":10`)

	rec = ts.do(http.MethodPost, "/events", `{"name":"New","dateTime":"2026-12-01T20:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "New", ts.catalog.created.Name)
}

func TestEventRoutes_Errors(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodGet, "/events/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodGet, "/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	ts.catalog.err = &service.Error{Kind: service.KindNotFound, Message: "event 9 not found"}
	rec = ts.do(http.MethodGet, "/events/9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"event 9 not found","code":"not_found"}`, rec.Body.String())

	ts.catalog.err = errors.New("raw failure")
	rec = ts.do(http.MethodGet, "/events/9", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "raw failure")
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.Requests.WithLabelValues("/health", "200")))

	rec = ts.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ticketing_http_requests_total")
}

func TestCORS_Preflight(t *testing.T) {
	h := CORS([]string{"https://shop.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/payment/confirm-payment", nil)
	req.Header.Set("Origin", "https://shop.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(service.KindInvalidRequest))
	assert.Equal(t, http.StatusNotFound, statusFor(service.KindNotFound))
	assert.Equal(t, http.StatusBadRequest, statusFor(service.KindPaymentNotConfirmed))
	assert.Equal(t, http.StatusConflict, statusFor(service.KindStockExhausted))
	assert.Equal(t, http.StatusInternalServerError, statusFor(service.KindInternal))
}
