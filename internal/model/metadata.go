package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Keys of the checkout session metadata blob.
const (
	MetaEventID       = "eventId"
	MetaEventName     = "eventName"
	MetaTotalAmount   = "totalAmount"
	MetaTicketDetails = "ticketDetails"
	MetaCustomerEmail = "customerEmail"
)

// MaxMetadataValueLen is the longest value the payment provider stores.
const MaxMetadataValueLen = 500

var (
	// ErrMalformedMetadata is returned when a session's metadata cannot be
	// turned back into an order.
	ErrMalformedMetadata = errors.New("malformed order metadata")

	// ErrMetadataTooLarge is returned when an order does not fit the
	// provider's metadata limits.
	ErrMetadataTooLarge = errors.New("order metadata exceeds provider limits")
)

// OrderMetadata is the typed form of the metadata attached to a checkout
// session. It is the only record of what was ordered once the purchaser
// leaves for the provider's checkout page.
type OrderMetadata struct {
	EventID       int64
	EventName     string
	TotalAmount   decimal.Decimal
	Lines         []LineDetail
	CustomerEmail string
}

// NewOrderMetadata captures the parts of a priced order needed for issuance.
func NewOrderMetadata(o PricedOrder) OrderMetadata {
	return OrderMetadata{
		EventID:       o.Event.ID,
		EventName:     o.Event.Name,
		TotalAmount:   o.Total,
		Lines:         o.Lines,
		CustomerEmail: o.CustomerEmail,
	}
}

// Encode renders the metadata as the provider's string map.
func (m OrderMetadata) Encode() (map[string]string, error) {
	details, err := json.Marshal(m.Lines)
	if err != nil {
		return nil, fmt.Errorf("encode ticket details: %w", err)
	}
	out := map[string]string{
		MetaEventID:       strconv.FormatInt(m.EventID, 10),
		MetaEventName:     m.EventName,
		MetaTotalAmount:   m.TotalAmount.String(),
		MetaTicketDetails: string(details),
		MetaCustomerEmail: m.CustomerEmail,
	}
	for k, v := range out {
		if len(v) > MaxMetadataValueLen {
			return nil, fmt.Errorf("%w: %s is %d characters", ErrMetadataTooLarge, k, len(v))
		}
	}
	return out, nil
}

// Event returns the event summary recorded in the metadata.
func (m OrderMetadata) Event() EventSummary {
	return EventSummary{ID: m.EventID, Name: m.EventName}
}

// ParseOrderMetadata validates and decodes a session metadata map.
func ParseOrderMetadata(md map[string]string) (OrderMetadata, error) {
	var m OrderMetadata

	id, err := strconv.ParseInt(strings.TrimSpace(md[MetaEventID]), 10, 64)
	if err != nil || id <= 0 {
		return m, fmt.Errorf("%w: eventId %q", ErrMalformedMetadata, md[MetaEventID])
	}
	m.EventID = id
	m.EventName = md[MetaEventName]
	m.CustomerEmail = md[MetaCustomerEmail]

	raw, ok := md[MetaTicketDetails]
	if !ok || raw == "" {
		return m, fmt.Errorf("%w: ticketDetails missing", ErrMalformedMetadata)
	}
	if err := json.Unmarshal([]byte(raw), &m.Lines); err != nil {
		return m, fmt.Errorf("%w: ticketDetails: %v", ErrMalformedMetadata, err)
	}
	if len(m.Lines) == 0 {
		return m, fmt.Errorf("%w: ticketDetails empty", ErrMalformedMetadata)
	}

	seen := make(map[int64]bool, len(m.Lines))
	sum := decimal.Zero
	for i, l := range m.Lines {
		switch {
		case l.TicketTypeID <= 0:
			return m, fmt.Errorf("%w: line %d has ticketTypeId %d", ErrMalformedMetadata, i, l.TicketTypeID)
		case l.Quantity <= 0:
			return m, fmt.Errorf("%w: line %d has quantity %d", ErrMalformedMetadata, i, l.Quantity)
		case seen[l.TicketTypeID]:
			return m, fmt.Errorf("%w: ticket type %d repeated", ErrMalformedMetadata, l.TicketTypeID)
		case !l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Equal(l.TotalPrice):
			return m, fmt.Errorf("%w: line %d total does not match unit price", ErrMalformedMetadata, i)
		}
		seen[l.TicketTypeID] = true
		sum = sum.Add(l.TotalPrice)
	}

	total, err := decimal.NewFromString(md[MetaTotalAmount])
	if err != nil {
		return m, fmt.Errorf("%w: totalAmount %q", ErrMalformedMetadata, md[MetaTotalAmount])
	}
	if !total.Equal(sum) {
		return m, fmt.Errorf("%w: totalAmount %s does not match lines %s", ErrMalformedMetadata, total, sum)
	}
	m.TotalAmount = total
	return m, nil
}

// SummaryFromMetadata reads just the event summary, tolerating anything
// else being broken. Used when replaying an already issued session.
func SummaryFromMetadata(md map[string]string) EventSummary {
	id, _ := strconv.ParseInt(strings.TrimSpace(md[MetaEventID]), 10, 64)
	return EventSummary{ID: id, Name: md[MetaEventName]}
}

// RedemptionCode derives the per-unit code for a ticket issued from a
// session. The same inputs always yield the same code.
func RedemptionCode(sessionID string, ticketTypeID int64, unit int) string {
	return fmt.Sprintf("%s_%d_%d", sessionID, ticketTypeID, unit)
}

// RedemptionPrefix is the prefix shared by every code derived from sessionID.
func RedemptionPrefix(sessionID string) string {
	return sessionID + "_"
}
