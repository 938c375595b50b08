package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"githarvest/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutboxStore struct {
	rows   []models.OutboxMessage
	marked []int64
}

func (s *fakeOutboxStore) Pending(ctx context.Context, limit int) ([]models.OutboxMessage, error) {
	pending := []models.OutboxMessage{}
	for _, row := range s.rows {
		if row.Status == models.OutboxPending && len(pending) < limit {
			pending = append(pending, row)
		}
	}
	return pending, nil
}

func (s *fakeOutboxStore) MarkSent(ctx context.Context, id int64, at time.Time) error {
	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows[i].Status = models.OutboxSent
		}
	}
	s.marked = append(s.marked, id)
	return nil
}

type fakePublisher struct {
	published []string
	failOn    map[string]bool
}

func (p *fakePublisher) Publish(ctx context.Context, topic, messageID string, payload []byte) error {
	if p.failOn[messageID] {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, messageID)
	return nil
}

func pendingRow(id int64, messageID string) models.OutboxMessage {
	return models.OutboxMessage{
		ID:        id,
		MessageID: messageID,
		Topic:     TOPIC_CHALLENGE_EVALUATION,
		Payload:   `{"user_id":42}`,
		Status:    models.OutboxPending,
	}
}

func TestSweep_PublishesInOrder(t *testing.T) {
	store := &fakeOutboxStore{rows: []models.OutboxMessage{
		pendingRow(1, "m1"),
		pendingRow(2, "m2"),
	}}
	publisher := &fakePublisher{}
	service := &ServiceOutbox{store: store, publisher: publisher}

	require.NoError(t, service.Sweep(context.Background()))

	assert.Equal(t, []string{"m1", "m2"}, publisher.published)
	assert.Equal(t, []int64{1, 2}, store.marked)
}

func TestSweep_PublishFailureLeavesRowPending(t *testing.T) {
	store := &fakeOutboxStore{rows: []models.OutboxMessage{
		pendingRow(1, "m1"),
		pendingRow(2, "m2"),
	}}
	publisher := &fakePublisher{failOn: map[string]bool{"m1": true}}
	service := &ServiceOutbox{store: store, publisher: publisher}

	require.NoError(t, service.Sweep(context.Background()))

	// m1 stays pending for the next sweep, m2 still goes out
	assert.Equal(t, []string{"m2"}, publisher.published)
	assert.Equal(t, models.OutboxPending, store.rows[0].Status)
	assert.Equal(t, models.OutboxSent, store.rows[1].Status)
}

func TestSweep_RetriesPendingOnNextPass(t *testing.T) {
	store := &fakeOutboxStore{rows: []models.OutboxMessage{pendingRow(1, "m1")}}
	publisher := &fakePublisher{failOn: map[string]bool{"m1": true}}
	service := &ServiceOutbox{store: store, publisher: publisher}

	require.NoError(t, service.Sweep(context.Background()))
	assert.Empty(t, publisher.published)

	publisher.failOn = nil
	require.NoError(t, service.Sweep(context.Background()))
	assert.Equal(t, []string{"m1"}, publisher.published)
	assert.Equal(t, models.OutboxSent, store.rows[0].Status)
}

func TestSweep_NothingPending(t *testing.T) {
	store := &fakeOutboxStore{}
	publisher := &fakePublisher{}
	service := &ServiceOutbox{store: store, publisher: publisher}

	require.NoError(t, service.Sweep(context.Background()))
	assert.Empty(t, publisher.published)
}
