package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/model"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/repository"
)

// EventReader is the read side of the event store used during checkout.
type EventReader interface {
	GetByID(ctx context.Context, id int64) (*model.Event, error)
	ListTicketTypes(ctx context.Context, eventID int64) ([]model.TicketType, error)
}

// EventStore adds the catalogue writes used by EventService.
type EventStore interface {
	EventReader
	Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	CreateTicketType(ctx context.Context, eventID int64, req model.CreateTicketTypeRequest) (*model.TicketType, error)
}

// EventService manages the event catalogue that checkout sells from.
type EventService struct {
	events   EventStore
	timeouts Timeouts
	logger   *zap.Logger
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore, timeouts Timeouts, logger *zap.Logger) *EventService {
	return &EventService{events: events, timeouts: timeouts, logger: logger}
}

// CreateEvent validates the request and delegates to the repository.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, invalidf("event name is required")
	}
	if req.DateTime.IsZero() {
		return nil, invalidf("event dateTime is required")
	}

	ctx, cancel := withTimeout(ctx, s.timeouts.Store)
	defer cancel()
	event, err := s.events.Create(ctx, req)
	if err != nil {
		s.logger.Error("create event failed", zap.Error(err))
		return nil, internal("failed to create event", err)
	}
	return event, nil
}

// ListEvents returns all events.
func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	ctx, cancel := withTimeout(ctx, s.timeouts.Store)
	defer cancel()
	events, err := s.events.List(ctx)
	if err != nil {
		s.logger.Error("list events failed", zap.Error(err))
		return nil, internal("failed to list events", err)
	}
	return events, nil
}

// GetEvent returns a single event by id.
func (s *EventService) GetEvent(ctx context.Context, id int64) (*model.Event, error) {
	ctx, cancel := withTimeout(ctx, s.timeouts.Store)
	defer cancel()
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundf("event %d not found", id)
		}
		s.logger.Error("get event failed", zap.Int64("event_id", id), zap.Error(err))
		return nil, internal("failed to get event", err)
	}
	return event, nil
}

// CreateTicketType validates and adds a ticket type to an event.
func (s *EventService) CreateTicketType(ctx context.Context, eventID int64, req model.CreateTicketTypeRequest) (*model.TicketType, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, invalidf("ticket type name is required")
	}
	if req.Price.IsNegative() {
		return nil, invalidf("price must not be negative")
	}
	if !req.Price.Equal(req.Price.Round(2)) {
		return nil, invalidf("price must have at most two decimal places")
	}
	if req.Quantity < 0 {
		return nil, invalidf("quantity must not be negative")
	}

	ctx, cancel := withTimeout(ctx, s.timeouts.Store)
	defer cancel()
	tt, err := s.events.CreateTicketType(ctx, eventID, req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundf("event %d not found", eventID)
		}
		s.logger.Error("create ticket type failed", zap.Int64("event_id", eventID), zap.Error(err))
		return nil, internal("failed to create ticket type", err)
	}
	return tt, nil
}

// ListTicketTypes returns an event's ticket types with remaining stock.
func (s *EventService) ListTicketTypes(ctx context.Context, eventID int64) ([]model.TicketType, error) {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeouts.Store)
	defer cancel()
	types, err := s.events.ListTicketTypes(ctx, eventID)
	if err != nil {
		s.logger.Error("list ticket types failed", zap.Int64("event_id", eventID), zap.Error(err))
		return nil, internal("failed to list ticket types", err)
	}
	return types, nil
}
