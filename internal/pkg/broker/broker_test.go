package broker

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDLQTopic(t *testing.T) {
	assert.Equal(t, "challenge-evaluation.dlq", DLQTopic("challenge-evaluation"))
	assert.True(t, IsDLQTopic(DLQTopic("point-changed")))
	assert.False(t, IsDLQTopic("point-changed"))
}

func TestMessageValues_Roundtrip(t *testing.T) {
	msg := Message{
		Topic:     "collection-trigger",
		MessageID: "abc-123",
		Payload:   []byte(`{"user_id":42}`),
	}

	parsed, err := messageFromValues("collection-trigger", messageValues(msg))
	require.NoError(t, err)
	assert.Equal(t, msg, parsed)
}

func TestMessageFromValues_MissingID(t *testing.T) {
	_, err := messageFromValues("collection-trigger", map[string]interface{}{
		"payload": "{}",
	})
	assert.Error(t, err)
}

func TestMessageFromValues_EmptyPayload(t *testing.T) {
	msg, err := messageFromValues("collection-trigger", map[string]interface{}{
		"message_id": "abc",
	})
	require.NoError(t, err)
	assert.Empty(t, msg.Payload)
}

func newTestBroker(t *testing.T) (*Broker, redis.UniversalClient) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, "test-group"), client
}

func readOneEntry(t *testing.T, b *Broker, client redis.UniversalClient, topic string) redis.XMessage {
	streams, err := client.XReadGroup(context.Background(), &redis.XReadGroupArgs{
		Group:    b.group,
		Consumer: b.consumer,
		Streams:  []string{topic, ">"},
		Count:    1,
	}).Result()
	require.NoError(t, err)
	require.Len(t, streams, 1)
	require.Len(t, streams[0].Messages, 1)
	return streams[0].Messages[0]
}

func pendingEntries(t *testing.T, b *Broker, client redis.UniversalClient, topic string) []redis.XMessage {
	streams, err := client.XReadGroup(context.Background(), &redis.XReadGroupArgs{
		Group:    b.group,
		Consumer: b.consumer,
		Streams:  []string{topic, "0"},
		Count:    10,
	}).Result()
	require.NoError(t, err)
	require.Len(t, streams, 1)
	return streams[0].Messages
}

func TestDispatch_HandlerFailureDeadLetters(t *testing.T) {
	b, client := newTestBroker(t)
	ctx := context.Background()
	topic := "challenge-evaluation"

	require.NoError(t, b.ensureGroup(ctx, topic))
	require.NoError(t, b.Publish(ctx, topic, "m1", []byte(`{"user_id":42}`)))

	entry := readOneEntry(t, b, client, topic)

	calls := 0
	b.dispatch(ctx, topic, entry, func(ctx context.Context, msg Message) error {
		calls++
		return errors.New("handler exploded")
	})
	assert.Equal(t, 1, calls)

	// the message lands on the topic's DLQ exactly once
	dead, err := b.DeadLetters(ctx, topic, 10)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, "m1", dead[0].MessageID)
	assert.Equal(t, []byte(`{"user_id":42}`), dead[0].Payload)

	// and is acked on the primary topic, never redelivered there
	assert.Empty(t, pendingEntries(t, b, client, topic))
}

func TestDispatch_ShutdownLeavesEntryPending(t *testing.T) {
	b, client := newTestBroker(t)
	topic := "point-changed"

	require.NoError(t, b.ensureGroup(context.Background(), topic))
	require.NoError(t, b.Publish(context.Background(), topic, "m1", []byte(`{}`)))

	entry := readOneEntry(t, b, client, topic)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.dispatch(ctx, topic, entry, func(ctx context.Context, msg Message) error {
		return ctx.Err()
	})

	// an interrupted handler is not a processing failure
	dead, err := b.DeadLetters(context.Background(), topic, 10)
	require.NoError(t, err)
	assert.Empty(t, dead)

	pending := pendingEntries(t, b, client, topic)
	require.Len(t, pending, 1)
	assert.Equal(t, entry.ID, pending[0].ID)
}

func TestReplayDeadLetters_RequeuesAndClearsDLQ(t *testing.T) {
	b, client := newTestBroker(t)
	ctx := context.Background()
	topic := "challenge-evaluation"

	require.NoError(t, b.ensureGroup(ctx, topic))
	require.NoError(t, b.Publish(ctx, topic, "m1", []byte(`{"user_id":42}`)))

	entry := readOneEntry(t, b, client, topic)
	b.dispatch(ctx, topic, entry, func(ctx context.Context, msg Message) error {
		return errors.New("handler exploded")
	})

	replayed, err := b.ReplayDeadLetters(ctx, topic)
	require.NoError(t, err)
	assert.Equal(t, 1, replayed)

	dead, err := b.DeadLetters(ctx, topic, 10)
	require.NoError(t, err)
	assert.Empty(t, dead)

	// the replayed message keeps its id, so consumer dedup still applies
	requeued := readOneEntry(t, b, client, topic)
	msg, err := messageFromValues(topic, requeued.Values)
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.MessageID)
}
