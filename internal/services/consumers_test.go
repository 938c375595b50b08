package services

import (
	"context"
	"errors"
	"testing"

	"githarvest/internal/pkg/broker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	seen map[string]bool
	err  error
}

func (l *fakeLedger) InsertProcessed(ctx context.Context, messageID, topic string) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	if l.seen == nil {
		l.seen = map[string]bool{}
	}
	if l.seen[messageID] {
		return false, nil
	}
	l.seen[messageID] = true
	return true, nil
}

func testMessage(id string) broker.Message {
	return broker.Message{Topic: TOPIC_POINT_CHANGED, MessageID: id, Payload: []byte(`{"user_id":42}`)}
}

func TestRunIdempotent_FirstDelivery(t *testing.T) {
	ledger := &fakeLedger{}
	ran := 0

	err := runIdempotent(context.Background(), ledger, testMessage("m1"), func(ctx context.Context) error {
		ran++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ran)
}

func TestRunIdempotent_DuplicateDelivery(t *testing.T) {
	ledger := &fakeLedger{}
	ran := 0
	action := func(ctx context.Context) error {
		ran++
		return nil
	}

	require.NoError(t, runIdempotent(context.Background(), ledger, testMessage("m1"), action))
	require.NoError(t, runIdempotent(context.Background(), ledger, testMessage("m1"), action))

	assert.Equal(t, 1, ran)
}

func TestRunIdempotent_DistinctMessages(t *testing.T) {
	ledger := &fakeLedger{}
	ran := 0
	action := func(ctx context.Context) error {
		ran++
		return nil
	}

	require.NoError(t, runIdempotent(context.Background(), ledger, testMessage("m1"), action))
	require.NoError(t, runIdempotent(context.Background(), ledger, testMessage("m2"), action))

	assert.Equal(t, 2, ran)
}

func TestRunIdempotent_ActionErrorPropagates(t *testing.T) {
	ledger := &fakeLedger{}
	boom := errors.New("constraint violation")

	err := runIdempotent(context.Background(), ledger, testMessage("m1"), func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestRunIdempotent_LedgerErrorSkipsAction(t *testing.T) {
	ledger := &fakeLedger{err: errors.New("connection refused")}
	ran := 0

	err := runIdempotent(context.Background(), ledger, testMessage("m1"), func(ctx context.Context) error {
		ran++
		return nil
	})
	assert.Error(t, err)
	assert.Zero(t, ran)
}

func TestDecode_Malformed(t *testing.T) {
	msg := broker.Message{Topic: TOPIC_POINT_CHANGED, MessageID: "m1", Payload: []byte("not json")}

	_, ok := decode[struct{}](msg)
	assert.False(t, ok)
}
