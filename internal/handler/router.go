package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/metrics"
)

// RouterConfig carries what NewRouter needs to assemble the API.
type RouterConfig struct {
	Events      *EventHandler
	Payments    *PaymentHandler
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	CORSOrigins []string
}

// NewRouter builds the chi router with the global middleware stack.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(cfg.Logger))      // structured access log
	r.Use(CORS(cfg.CORSOrigins))
	r.Use(Metrics(cfg.Metrics))

	r.Get("/health", HealthCheck)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	r.Route("/events", func(r chi.Router) {
		r.Post("/", cfg.Events.CreateEvent)
		r.Get("/", cfg.Events.ListEvents)
		r.Get("/{id}", cfg.Events.GetEvent)
		r.Post("/{id}/ticket-types", cfg.Events.CreateTicketType)
		r.Get("/{id}/ticket-types", cfg.Events.ListTicketTypes)
	})

	r.Route("/payment", func(r chi.Router) {
		r.Post("/create-event-checkout", cfg.Payments.CreateEventCheckout)
		r.Post("/confirm-payment", cfg.Payments.ConfirmPayment)
		r.Post("/create-checkout-session", cfg.Payments.CreateCheckoutSession)
		r.Post("/create-payment-intent", cfg.Payments.CreatePaymentIntent)
	})

	return r
}
