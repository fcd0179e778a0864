package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/model"
)

// EventRepository handles persistence for events and their ticket types.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event and returns it with its generated id.
func (r *EventRepository) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	event := &model.Event{
		Name:        req.Name,
		Description: req.Description,
		DateTime:    req.DateTime.UTC(),
		Location:    req.Location,
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO events (name, description, date_time, location)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		event.Name, event.Description, event.DateTime, event.Location,
	).Scan(&event.ID)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// List returns all events ordered by date.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, description, date_time, location
		 FROM events
		 ORDER BY date_time ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.DateTime, &e.Location); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*model.Event, error) {
	var e model.Event
	err := r.db.QueryRow(ctx,
		`SELECT id, name, description, date_time, location
		 FROM events WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Name, &e.Description, &e.DateTime, &e.Location)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// CreateTicketType adds a ticket type to an existing event.
func (r *EventRepository) CreateTicketType(ctx context.Context, eventID int64, req model.CreateTicketTypeRequest) (*model.TicketType, error) {
	tt := &model.TicketType{
		EventID:     eventID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO event_ticket_types (event_id, name, description, price, quantity)
		 SELECT $1::bigint, $2::text, $3::text, $4::text::numeric, $5::integer
		 WHERE EXISTS (SELECT 1 FROM events WHERE id = $1::bigint)
		 RETURNING id`,
		eventID, tt.Name, tt.Description, tt.Price.String(), tt.Quantity,
	).Scan(&tt.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("insert ticket type: %w", err)
	}
	return tt, nil
}

// ListTicketTypes returns the ticket types of an event with their current
// remaining stock.
func (r *EventRepository) ListTicketTypes(ctx context.Context, eventID int64) ([]model.TicketType, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, event_id, name, description, price::text, quantity
		 FROM event_ticket_types
		 WHERE event_id = $1
		 ORDER BY id ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list ticket types: %w", err)
	}
	defer rows.Close()

	var types []model.TicketType
	for rows.Next() {
		var (
			tt    model.TicketType
			price string
		)
		if err := rows.Scan(&tt.ID, &tt.EventID, &tt.Name, &tt.Description, &price, &tt.Quantity); err != nil {
			return nil, fmt.Errorf("scan ticket type: %w", err)
		}
		if tt.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price of ticket type %d: %w", tt.ID, err)
		}
		types = append(types, tt)
	}
	return types, rows.Err()
}
