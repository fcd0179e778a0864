package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/metrics"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/model"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/payment"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/repository"
)

// TicketStore reads and issues tickets.
type TicketStore interface {
	FindBySession(ctx context.Context, sessionID string) ([]model.Ticket, error)
	Issue(ctx context.Context, req repository.IssueRequest) ([]model.Ticket, bool, error)
}

// ReconcileInput identifies a returning purchaser's checkout session.
type ReconcileInput struct {
	SessionID   string
	AssociateID string
}

// ReconcileResult lists the tickets of a session. AlreadyProcessed is set
// when they were issued by an earlier call rather than this one.
type ReconcileResult struct {
	SessionID        string
	Tickets          []model.Ticket
	Event            model.EventSummary
	AlreadyProcessed bool
}

// Reconciler turns paid checkout sessions into tickets, at most once per
// session. Callers may retry freely.
type Reconciler struct {
	tickets  TicketStore
	provider payment.Provider
	timeouts Timeouts
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewReconciler constructs a Reconciler.
func NewReconciler(
	tickets TicketStore,
	provider payment.Provider,
	timeouts Timeouts,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Reconciler {
	return &Reconciler{
		tickets:  tickets,
		provider: provider,
		timeouts: timeouts,
		logger:   logger,
		metrics:  m,
	}
}

// Reconcile confirms payment for a session and issues its tickets.
func (r *Reconciler) Reconcile(ctx context.Context, in ReconcileInput) (ReconcileResult, error) {
	res, err := r.reconcile(ctx, in)
	switch {
	case err != nil:
		r.metrics.Reconciled(string(KindOf(err)), 0)
	case res.AlreadyProcessed:
		r.metrics.Reconciled("already_processed", 0)
	default:
		r.metrics.Reconciled("issued", len(res.Tickets))
	}
	return res, err
}

func (r *Reconciler) reconcile(ctx context.Context, in ReconcileInput) (ReconcileResult, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	associateID := strings.TrimSpace(in.AssociateID)
	if sessionID == "" || associateID == "" {
		return ReconcileResult{}, invalidf("sessionId and associateId are required")
	}
	log := r.logger.With(zap.String("session_id", sessionID))

	// ── 1. Payment must be confirmed by the provider. ─────────────────────
	session, err := r.retrieve(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payment.ErrSessionNotFound) {
			return ReconcileResult{}, notFoundf("checkout session %s not found", sessionID)
		}
		log.Error("retrieve checkout session failed", zap.Error(err))
		return ReconcileResult{}, internal("failed to verify payment", err)
	}
	if !session.Paid() {
		return ReconcileResult{}, &Error{
			Kind:    KindPaymentNotConfirmed,
			Message: fmt.Sprintf("payment not confirmed (status %q)", session.PaymentStatus),
		}
	}

	// ── 2. Short-circuit sessions that were already reconciled. ───────────
	existing, err := r.findExisting(ctx, sessionID)
	if err != nil {
		log.Error("look up issued tickets failed", zap.Error(err))
		return ReconcileResult{}, internal("failed to check issued tickets", err)
	}
	if len(existing) > 0 {
		return ReconcileResult{
			SessionID:        sessionID,
			Tickets:          existing,
			Event:            model.SummaryFromMetadata(session.Metadata),
			AlreadyProcessed: true,
		}, nil
	}

	// ── 3. The session metadata is the only record of the order. ──────────
	order, err := model.ParseOrderMetadata(session.Metadata)
	if err != nil {
		log.Error("checkout session metadata rejected", zap.Error(err))
		return ReconcileResult{}, internal("checkout session cannot be reconciled", err)
	}

	// ── 4. Issue every unit in one transaction. ───────────────────────────
	ictx, cancel := withTimeout(ctx, r.timeouts.Store)
	defer cancel()
	tickets, created, err := r.tickets.Issue(ictx, repository.IssueRequest{
		SessionID:   sessionID,
		AssociateID: associateID,
		Event:       order.Event(),
		Lines:       order.Lines,
	})
	if err != nil {
		return r.issueFailed(ctx, log, sessionID, order, err)
	}

	if created {
		log.Info("tickets issued",
			zap.String("associate_id", associateID),
			zap.Int64("event_id", order.EventID),
			zap.Int("count", len(tickets)),
		)
	}
	return ReconcileResult{
		SessionID:        sessionID,
		Tickets:          tickets,
		Event:            order.Event(),
		AlreadyProcessed: !created,
	}, nil
}

func (r *Reconciler) issueFailed(ctx context.Context, log *zap.Logger, sessionID string, order model.OrderMetadata, err error) (ReconcileResult, error) {
	var stockErr *repository.StockError
	switch {
	case errors.As(err, &stockErr):
		// Paid but unfulfillable; needs manual follow-up at the provider.
		log.Error("stock exhausted at issuance",
			zap.Int64("ticket_type_id", stockErr.TicketTypeID),
			zap.Int("requested", stockErr.Requested),
			zap.Int("available", stockErr.Available),
		)
		return ReconcileResult{}, &Error{
			Kind: KindStockExhausted,
			Message: fmt.Sprintf("ticket type %d sold out: requested %d, available %d",
				stockErr.TicketTypeID, stockErr.Requested, stockErr.Available),
			Err: err,
		}
	case errors.Is(err, repository.ErrDuplicateCode):
		existing, findErr := r.findExisting(ctx, sessionID)
		if findErr == nil && len(existing) > 0 {
			return ReconcileResult{
				SessionID:        sessionID,
				Tickets:          existing,
				Event:            order.Event(),
				AlreadyProcessed: true,
			}, nil
		}
	}
	log.Error("issue tickets failed", zap.Error(err))
	return ReconcileResult{}, internal("failed to issue tickets", err)
}

func (r *Reconciler) retrieve(ctx context.Context, sessionID string) (payment.Session, error) {
	ctx, cancel := withTimeout(ctx, r.timeouts.Provider)
	defer cancel()
	return r.provider.RetrieveSession(ctx, sessionID)
}

func (r *Reconciler) findExisting(ctx context.Context, sessionID string) ([]model.Ticket, error) {
	ctx, cancel := withTimeout(ctx, r.timeouts.Store)
	defer cancel()
	return r.tickets.FindBySession(ctx, sessionID)
}
