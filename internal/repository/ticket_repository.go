package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/model"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/outbox"
)

// IssueRequest describes one paid session to be turned into tickets.
type IssueRequest struct {
	SessionID   string
	AssociateID string
	Event       model.EventSummary
	Lines       []model.LineDetail
}

// TicketRepository handles persistence for issued tickets.
type TicketRepository struct {
	db *pgxpool.Pool
}

// NewTicketRepository constructs a TicketRepository.
func NewTicketRepository(db *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{db: db}
}

// FindBySession returns every ticket whose redemption code was derived from
// sessionID.
func (r *TicketRepository) FindBySession(ctx context.Context, sessionID string) ([]model.Ticket, error) {
	return findBySession(ctx, r.db, sessionID)
}

// Issue materializes one ticket per purchased unit of a paid session.
//
// Exactly-once issuance per session relies on two things:
//
//  1. A transaction-scoped advisory lock keyed by the session id. Concurrent
//     reconciliations of the same session queue here; the loser then sees
//     the winner's tickets and returns them with created=false.
//  2. The unique constraint on tickets.qr_code_id. Codes are derived from
//     (session, ticket type, unit index), so a second full pass would
//     collide even if the lock were bypassed.
//
// Stock is re-checked under SELECT … FOR UPDATE and decremented in the same
// transaction, closing the window left open by the build-time check. Rows
// are locked in ascending id order so two sessions sharing ticket types
// cannot deadlock.
func (r *TicketRepository) Issue(ctx context.Context, req IssueRequest) (tickets []model.Ticket, created bool, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// ── Serialize on the session. ──────────────────────────────────────────
	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, req.SessionID); err != nil {
		return nil, false, fmt.Errorf("lock session: %w", err)
	}

	existing, err := findBySession(ctx, tx, req.SessionID)
	if err != nil {
		return nil, false, err
	}
	if len(existing) > 0 {
		if err = tx.Commit(ctx); err != nil {
			return nil, false, fmt.Errorf("commit transaction: %w", err)
		}
		return existing, false, nil
	}

	lines := make([]model.LineDetail, len(req.Lines))
	copy(lines, req.Lines)
	sort.Slice(lines, func(i, j int) bool { return lines[i].TicketTypeID < lines[j].TicketTypeID })

	// ── Re-check and decrement stock. ──────────────────────────────────────
	for _, l := range lines {
		var available int
		err = tx.QueryRow(ctx,
			`SELECT quantity FROM event_ticket_types WHERE id = $1 FOR UPDATE`,
			l.TicketTypeID,
		).Scan(&available)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				err = fmt.Errorf("ticket type %d: %w", l.TicketTypeID, ErrNotFound)
				return nil, false, err
			}
			return nil, false, fmt.Errorf("lock ticket type %d: %w", l.TicketTypeID, err)
		}
		if available < l.Quantity {
			err = &StockError{TicketTypeID: l.TicketTypeID, Requested: l.Quantity, Available: available}
			return nil, false, err
		}
		if _, err = tx.Exec(ctx,
			`UPDATE event_ticket_types SET quantity = quantity - $2 WHERE id = $1`,
			l.TicketTypeID, l.Quantity,
		); err != nil {
			return nil, false, fmt.Errorf("decrement ticket type %d: %w", l.TicketTypeID, err)
		}
	}

	// ── Insert tickets. ───────────────────────────────────────────────────
	now := time.Now().UTC().Truncate(time.Microsecond)
	for _, l := range lines {
		for i := 0; i < l.Quantity; i++ {
			t := model.Ticket{
				ID:             uuid.New().String(),
				TicketTypeID:   l.TicketTypeID,
				TicketTypeName: l.TicketTypeName,
				AssociateID:    req.AssociateID,
				Status:         model.TicketStatusNotUsed,
				QRCodeID:       model.RedemptionCode(req.SessionID, l.TicketTypeID, i),
				CreatedAt:      now,
			}
			_, err = tx.Exec(ctx,
				`INSERT INTO tickets (id, ticket_type_id, associate_id, status, qr_code_id, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				t.ID, t.TicketTypeID, t.AssociateID, t.Status, t.QRCodeID, t.CreatedAt,
			)
			if err != nil {
				if isUniqueViolation(err) {
					err = fmt.Errorf("%s: %w", t.QRCodeID, ErrDuplicateCode)
					return nil, false, err
				}
				return nil, false, fmt.Errorf("insert ticket: %w", err)
			}
			tickets = append(tickets, t)
		}
	}

	// ── Record the notification with the tickets. ─────────────────────────
	if err = outbox.Insert(ctx, tx, req.SessionID, outbox.TopicTicketsIssued, req.SessionID, ticketsIssuedPayload{
		SessionID:   req.SessionID,
		AssociateID: req.AssociateID,
		Event:       req.Event,
		Tickets:     tickets,
		IssuedAt:    now,
	}); err != nil {
		return nil, false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit transaction: %w", err)
	}
	return tickets, true, nil
}

type ticketsIssuedPayload struct {
	SessionID   string             `json:"sessionId"`
	AssociateID string             `json:"associateId"`
	Event       model.EventSummary `json:"event"`
	Tickets     []model.Ticket     `json:"tickets"`
	IssuedAt    time.Time          `json:"issuedAt"`
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func findBySession(ctx context.Context, q querier, sessionID string) ([]model.Ticket, error) {
	rows, err := q.Query(ctx,
		`SELECT t.id::text, t.ticket_type_id, tt.name, t.associate_id, t.status, t.qr_code_id, t.created_at
		 FROM tickets t
		 JOIN event_ticket_types tt ON tt.id = t.ticket_type_id
		 WHERE t.qr_code_id LIKE $1`,
		prefixPattern(model.RedemptionPrefix(sessionID)),
	)
	if err != nil {
		return nil, fmt.Errorf("find tickets by session: %w", err)
	}
	defer rows.Close()

	var tickets []model.Ticket
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(&t.ID, &t.TicketTypeID, &t.TicketTypeName, &t.AssociateID, &t.Status, &t.QRCodeID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		if !derivedFrom(t.QRCodeID, sessionID, t.TicketTypeID) {
			continue
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	model.SortTickets(tickets)
	return tickets, nil
}

// derivedFrom guards the prefix match against a longer session id that
// happens to start with sessionID followed by an underscore.
func derivedFrom(code, sessionID string, ticketTypeID int64) bool {
	rest := code[len(model.RedemptionPrefix(sessionID)):]
	want := strconv.FormatInt(ticketTypeID, 10) + "_"
	if len(rest) <= len(want) || rest[:len(want)] != want {
		return false
	}
	_, err := strconv.Atoi(rest[len(want):])
	return err == nil
}
