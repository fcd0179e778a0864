package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/model"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/service"
)

// EventCatalog is the event service as seen by the HTTP layer.
type EventCatalog interface {
	CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	GetEvent(ctx context.Context, id int64) (*model.Event, error)
	CreateTicketType(ctx context.Context, eventID int64, req model.CreateTicketTypeRequest) (*model.TicketType, error)
	ListTicketTypes(ctx context.Context, eventID int64) ([]model.TicketType, error)
}

// EventHandler serves the event catalogue.
type EventHandler struct {
	svc    EventCatalog
	logger *zap.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc EventCatalog, logger *zap.Logger) *EventHandler {
	return &EventHandler{svc: svc, logger: logger}
}

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, string(service.KindInvalidRequest), "invalid event id")
		return
	}

	event, err := h.svc.GetEvent(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// CreateTicketType handles POST /events/{id}/ticket-types
func (h *EventHandler) CreateTicketType(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, string(service.KindInvalidRequest), "invalid event id")
		return
	}

	var req model.CreateTicketTypeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	tt, err := h.svc.CreateTicketType(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, tt)
}

// ListTicketTypes handles GET /events/{id}/ticket-types
// Quantities are the stock remaining right now.
func (h *EventHandler) ListTicketTypes(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, string(service.KindInvalidRequest), "invalid event id")
		return
	}

	types, err := h.svc.ListTicketTypes(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if types == nil {
		types = []model.TicketType{}
	}

	writeJSON(w, http.StatusOK, types)
}
