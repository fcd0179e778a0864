package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-ticket-checkout/internal/model"
)

func TestEventService(t *testing.T) {
	ctx := context.Background()
	events := newFakeEvents()
	svc := NewEventService(events, testTimeouts, zap.NewNop())

	t.Run("CreateEvent validates name and date", func(t *testing.T) {
		_, err := svc.CreateEvent(ctx, model.CreateEventRequest{Name: "  ", DateTime: time.Now()})
		assert.Equal(t, KindInvalidRequest, KindOf(err))

		_, err = svc.CreateEvent(ctx, model.CreateEventRequest{Name: "Jazz"})
		assert.Equal(t, KindInvalidRequest, KindOf(err))
	})

	event, err := svc.CreateEvent(ctx, model.CreateEventRequest{Name: " Jazz Night ", DateTime: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, "Jazz Night", event.Name)

	t.Run("GetEvent maps missing events to not found", func(t *testing.T) {
		got, err := svc.GetEvent(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, event.ID, got.ID)

		_, err = svc.GetEvent(ctx, 999)
		assert.Equal(t, KindNotFound, KindOf(err))
	})

	t.Run("CreateTicketType validates price and quantity", func(t *testing.T) {
		tests := []model.CreateTicketTypeRequest{
			{Name: "", Price: decimal.NewFromInt(1), Quantity: 1},
			{Name: "VIP", Price: decimal.NewFromInt(-1), Quantity: 1},
			{Name: "VIP", Price: decimal.RequireFromString("1.005"), Quantity: 1},
			{Name: "VIP", Price: decimal.NewFromInt(1), Quantity: -1},
		}
		for _, req := range tests {
			_, err := svc.CreateTicketType(ctx, event.ID, req)
			assert.Equal(t, KindInvalidRequest, KindOf(err), "%+v", req)
		}

		_, err := svc.CreateTicketType(ctx, 999, model.CreateTicketTypeRequest{Name: "VIP", Price: decimal.NewFromInt(1)})
		assert.Equal(t, KindNotFound, KindOf(err))
	})

	t.Run("ticket types are listed per event", func(t *testing.T) {
		tt, err := svc.CreateTicketType(ctx, event.ID, model.CreateTicketTypeRequest{
			Name: "General", Price: decimal.RequireFromString("25.50"), Quantity: 100,
		})
		require.NoError(t, err)

		types, err := svc.ListTicketTypes(ctx, event.ID)
		require.NoError(t, err)
		require.Len(t, types, 1)
		assert.Equal(t, tt.ID, types[0].ID)

		_, err = svc.ListTicketTypes(ctx, 999)
		assert.Equal(t, KindNotFound, KindOf(err))
	})

	t.Run("ListEvents", func(t *testing.T) {
		list, err := svc.ListEvents(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}
