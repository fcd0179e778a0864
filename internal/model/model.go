// Package model defines the core domain types for the ticket checkout system.
package model

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TicketStatusNotUsed is the status every ticket is issued with.
// Redemption moves it elsewhere; that happens outside this service.
const TicketStatusNotUsed = "not used"

// Event represents a ticketed event.
type Event struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	DateTime    time.Time `json:"dateTime"`
	Location    string    `json:"location"`
}

// TicketType is a priced, stocked kind of ticket belonging to one event.
type TicketType struct {
	ID          int64           `json:"id"`
	EventID     int64           `json:"eventId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// BasketLine is one purchaser-supplied (ticket type, count) pair.
type BasketLine struct {
	TicketTypeID int64 `json:"ticketTypeId"`
	Quantity     int   `json:"quantity"`
}

// LineDetail is a priced basket line. It is also the unit serialized into
// checkout session metadata.
type LineDetail struct {
	TicketTypeID   int64           `json:"ticketTypeId"`
	TicketTypeName string          `json:"ticketTypeName"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	TotalPrice     decimal.Decimal `json:"totalPrice"`
}

// PricedOrder is the validated, totalled basket for one event.
type PricedOrder struct {
	Event         Event
	Lines         []LineDetail
	Total         decimal.Decimal
	Currency      string
	CustomerEmail string
}

// Units returns the number of tickets the order will materialize.
func (o PricedOrder) Units() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}

// Ticket is one issued admission.
type Ticket struct {
	ID             string    `json:"id"`
	TicketTypeID   int64     `json:"ticketTypeId"`
	TicketTypeName string    `json:"ticketTypeName"`
	AssociateID    string    `json:"associateId"`
	Status         string    `json:"status"`
	QRCodeID       string    `json:"qrCodeId"`
	CreatedAt      time.Time `json:"createdAt"`
}

// EventSummary is the minimal event view carried through session metadata.
type EventSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	DateTime    time.Time `json:"dateTime"`
	Location    string    `json:"location"`
}

// CreateTicketTypeRequest is the payload for adding a ticket type to an event.
type CreateTicketTypeRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// SortTickets orders tickets by ticket type and then by the unit index
// encoded at the end of their redemption code.
func SortTickets(tickets []Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		a, b := tickets[i], tickets[j]
		if a.TicketTypeID != b.TicketTypeID {
			return a.TicketTypeID < b.TicketTypeID
		}
		return unitIndex(a.QRCodeID) < unitIndex(b.QRCodeID)
	})
}

func unitIndex(code string) int {
	i := strings.LastIndexByte(code, '_')
	if i < 0 {
		return 0
	}
	n, _ := strconv.Atoi(code[i+1:])
	return n
}
