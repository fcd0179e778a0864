package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Publisher delivers one message to the broker.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

// PendingStore is the part of Store the relay needs.
type PendingStore interface {
	FetchPending(ctx context.Context, limit int) ([]Record, error)
	MarkSent(ctx context.Context, id int64) error
}

// Relay polls the outbox and publishes pending records in order. A record
// is marked sent only after the broker accepted it, so delivery is
// at-least-once.
type Relay struct {
	store     PendingStore
	publisher Publisher
	logger    *zap.Logger
	interval  time.Duration
	batchSize int
	// topics maps outbox topics to broker topics; unmapped topics pass through.
	topics map[string]string
}

// NewRelay constructs a Relay.
func NewRelay(store PendingStore, publisher Publisher, logger *zap.Logger, interval time.Duration, topics map[string]string) *Relay {
	return &Relay{
		store:     store,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		batchSize: 100,
		topics:    topics,
	}
}

// Run flushes the outbox every interval until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
			r.logger.Warn("outbox flush failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Flush publishes one batch of pending records and returns how many were
// delivered. It stops at the first failure to preserve ordering.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	records, err := r.store.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, rec := range records {
		topic := rec.Topic
		if mapped, ok := r.topics[topic]; ok {
			topic = mapped
		}
		if err := r.publisher.Publish(ctx, topic, rec.Key, rec.Payload); err != nil {
			return sent, err
		}
		if err := r.store.MarkSent(ctx, rec.ID); err != nil {
			return sent, err
		}
		sent++
		r.logger.Debug("outbox record published",
			zap.Int64("outbox_id", rec.ID),
			zap.String("topic", topic),
			zap.String("key", rec.Key),
		)
	}
	return sent, nil
}
