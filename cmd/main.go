// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/broker"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/config"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/database"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/handler"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/logging"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/metrics"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/outbox"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/payment"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/repository"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.AppEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Connect to PostgreSQL and apply migrations ─────────────────────
	pool, err := database.NewPool(ctx, cfg.DB, logger)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("connected to PostgreSQL", zap.String("host", cfg.DB.Host), zap.String("db", cfg.DB.Name))

	// ── 2. Wire up layers ────────────────────────────────────────────────
	m := metrics.New()
	provider := payment.NewStripeProvider(cfg.Stripe.SecretKey, cfg.Stripe.APIURL)
	timeouts := service.Timeouts{Store: cfg.StoreTimeout, Provider: cfg.ProviderTimeout}
	opts := service.CheckoutOptions{
		SuccessURL:     cfg.Checkout.SuccessURL,
		CancelURL:      cfg.Checkout.CancelURL,
		Currency:       cfg.Checkout.Currency,
		Locale:         cfg.Checkout.Locale,
		PaymentMethods: cfg.Checkout.PaymentMethods,
	}

	eventRepo := repository.NewEventRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)

	eventSvc := service.NewEventService(eventRepo, timeouts, logger)
	orders := service.NewOrderBuilder(eventRepo, provider, opts, timeouts, logger, m)
	reconciler := service.NewReconciler(ticketRepo, provider, timeouts, logger, m)
	checkout := service.NewCheckoutService(provider, opts, timeouts, logger)

	router := handler.NewRouter(handler.RouterConfig{
		Events:      handler.NewEventHandler(eventSvc, logger),
		Payments:    handler.NewPaymentHandler(orders, reconciler, checkout, logger),
		Logger:      logger,
		Metrics:     m,
		CORSOrigins: cfg.CORSOrigins,
	})

	// ── 3. Relay issued-ticket notifications ──────────────────────────────
	relayDone := make(chan struct{})
	if cfg.KafkaEnabled() {
		kafka := broker.NewKafka(cfg.KafkaBrokers)
		defer func() { _ = kafka.Close() }()
		relay := outbox.NewRelay(outbox.NewStore(pool), kafka, logger, cfg.OutboxPollInterval,
			map[string]string{outbox.TopicTicketsIssued: cfg.KafkaTicketsTopic})
		go func() {
			defer close(relayDone)
			relay.Run(ctx)
		}()
		logger.Info("outbox relay started", zap.Strings("brokers", cfg.KafkaBrokers))
	} else {
		close(relayDone)
		logger.Info("KAFKA_BROKERS not set; issued-ticket notifications stay in the outbox")
	}

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	stop()
	<-relayDone
	logger.Info("server stopped")
	return nil
}
