package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/model"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/payment"
	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/repository"
)

type fakeEvents struct {
	mu     sync.Mutex
	events map[int64]*model.Event
	types  map[int64][]model.TicketType
	nextID int64
	err    error
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{
		events: map[int64]*model.Event{},
		types:  map[int64][]model.TicketType{},
		nextID: 100,
	}
}

func (f *fakeEvents) GetByID(_ context.Context, id int64) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	e, ok := f.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEvents) ListTicketTypes(_ context.Context, eventID int64) ([]model.TicketType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]model.TicketType(nil), f.types[eventID]...), nil
}

func (f *fakeEvents) Create(_ context.Context, req model.CreateEventRequest) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	e := &model.Event{
		ID:          f.nextID,
		Name:        req.Name,
		Description: req.Description,
		DateTime:    req.DateTime,
		Location:    req.Location,
	}
	f.events[e.ID] = e
	return e, nil
}

func (f *fakeEvents) List(context.Context) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Event, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeEvents) CreateTicketType(_ context.Context, eventID int64, req model.CreateTicketTypeRequest) (*model.TicketType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[eventID]; !ok {
		return nil, repository.ErrNotFound
	}
	f.nextID++
	tt := model.TicketType{
		ID:          f.nextID,
		EventID:     eventID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
	}
	f.types[eventID] = append(f.types[eventID], tt)
	return &tt, nil
}

func (f *fakeEvents) addEvent(e model.Event, types ...model.TicketType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[e.ID] = &e
	f.types[e.ID] = types
}

type fakeProvider struct {
	mu       sync.Mutex
	sessions map[string]payment.Session
	created  []payment.CheckoutRequest
	intents  int
	nextID   int
	err      error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{sessions: map[string]payment.Session{}}
}

func (p *fakeProvider) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (payment.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return payment.Session{}, p.err
	}
	p.nextID++
	s := payment.Session{
		ID:            fmt.Sprintf("cs_test_%d", p.nextID),
		URL:           fmt.Sprintf("https://checkout.example/%d", p.nextID),
		PaymentStatus: payment.StatusUnpaid,
		Metadata:      req.Metadata,
	}
	p.sessions[s.ID] = s
	p.created = append(p.created, req)
	return s, nil
}

func (p *fakeProvider) RetrieveSession(_ context.Context, id string) (payment.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return payment.Session{}, p.err
	}
	s, ok := p.sessions[id]
	if !ok {
		return payment.Session{}, payment.ErrSessionNotFound
	}
	return s, nil
}

func (p *fakeProvider) CreatePaymentIntent(_ context.Context, amount int64, currency string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.intents++
	return fmt.Sprintf("pi_%d_%s_secret", amount, currency), nil
}

func (p *fakeProvider) put(s payment.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[s.ID] = s
}

func (p *fakeProvider) markPaid(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.sessions[id]
	s.PaymentStatus = payment.StatusPaid
	p.sessions[id] = s
}

// fakeTickets mirrors the repository's issuance semantics: one issuance per
// session, stock re-checked and decremented atomically.
type fakeTickets struct {
	mu      sync.Mutex
	stock   map[int64]int
	issued  map[string][]model.Ticket
	issues  int
	findErr error
	dupOnce bool
}

func newFakeTickets(stock map[int64]int) *fakeTickets {
	return &fakeTickets{stock: stock, issued: map[string][]model.Ticket{}}
}

func (f *fakeTickets) FindBySession(_ context.Context, sessionID string) ([]model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	return append([]model.Ticket(nil), f.issued[sessionID]...), nil
}

func (f *fakeTickets) Issue(_ context.Context, req repository.IssueRequest) ([]model.Ticket, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.issued[req.SessionID]; ok {
		return append([]model.Ticket(nil), existing...), false, nil
	}
	for _, l := range req.Lines {
		if f.stock[l.TicketTypeID] < l.Quantity {
			return nil, false, &repository.StockError{
				TicketTypeID: l.TicketTypeID,
				Requested:    l.Quantity,
				Available:    f.stock[l.TicketTypeID],
			}
		}
	}

	var out []model.Ticket
	for _, l := range req.Lines {
		f.stock[l.TicketTypeID] -= l.Quantity
		for i := 0; i < l.Quantity; i++ {
			out = append(out, model.Ticket{
				ID:             uuid.NewString(),
				TicketTypeID:   l.TicketTypeID,
				TicketTypeName: l.TicketTypeName,
				AssociateID:    req.AssociateID,
				Status:         model.TicketStatusNotUsed,
				QRCodeID:       model.RedemptionCode(req.SessionID, l.TicketTypeID, i),
				CreatedAt:      time.Now(),
			})
		}
	}
	model.SortTickets(out)
	f.issues++
	f.issued[req.SessionID] = out

	if f.dupOnce {
		f.dupOnce = false
		return nil, false, repository.ErrDuplicateCode
	}
	return append([]model.Ticket(nil), out...), true, nil
}

func (f *fakeTickets) remaining(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stock[id]
}
