package services

import (
	"context"
	"errors"
	"log"
	"time"

	"githarvest/internal/datastore"
	"githarvest/internal/models"
	"githarvest/internal/pkg/broker"

	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type outboxStore interface {
	Pending(ctx context.Context, limit int) ([]models.OutboxMessage, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
}

type messagePublisher interface {
	Publish(ctx context.Context, topic, messageID string, payload []byte) error
}

type pgOutboxStore struct {
	db *bun.DB
}

func (s pgOutboxStore) Pending(ctx context.Context, limit int) ([]models.OutboxMessage, error) {
	return datastore.PendingOutboxMessages(ctx, s.db, limit)
}

func (s pgOutboxStore) MarkSent(ctx context.Context, id int64, at time.Time) error {
	return datastore.MarkOutboxSent(ctx, s.db, id, at)
}

// ServiceOutbox sweeps PENDING outbox rows onto the broker. A row is marked
// SENT only after the broker accepted it, so every event reaches the broker
// at least once; consumers own deduplication.
type ServiceOutbox struct {
	store     outboxStore
	publisher messagePublisher
}

func NewServiceOutbox(container *do.Injector) (*ServiceOutbox, error) {
	db, err := do.InvokeNamed[*bun.DB](container, "db")
	if err != nil {
		return nil, err
	}

	b, err := do.Invoke[*broker.Broker](container)
	if err != nil {
		return nil, err
	}

	return &ServiceOutbox{store: pgOutboxStore{db}, publisher: b}, nil
}

func (service *ServiceOutbox) Run(ctx context.Context) error {
	ticker := time.NewTicker(OUTBOX_SWEEP_INTERVAL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := service.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("outbox: sweep: %v", err)
			}
		}
	}
}

// Sweep publishes one batch of pending rows in creation order. A publish
// failure leaves the row PENDING for the next sweep; a mark failure after a
// successful publish produces a duplicate, which dedup absorbs.
func (service *ServiceOutbox) Sweep(ctx context.Context) error {
	pending, err := service.store.Pending(ctx, OUTBOX_BATCH_SIZE)
	if err != nil {
		return err
	}

	for _, msg := range pending {
		if err := service.publisher.Publish(ctx, msg.Topic, msg.MessageID, []byte(msg.Payload)); err != nil {
			log.Printf("outbox: publish %s to %s: %v", msg.MessageID, msg.Topic, err)
			continue
		}
		if err := service.store.MarkSent(ctx, msg.ID, time.Now()); err != nil {
			log.Printf("outbox: mark sent %s: %v", msg.MessageID, err)
		}
	}
	return nil
}
