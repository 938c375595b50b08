package broker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/semaphore"
)

const (
	dlqSuffix       = ".dlq"
	readBlock       = 2 * time.Second
	readCount       = 10
	claimMinIdle    = time.Minute
	maxStreamLength = 100000
)

// Message is the broker wire contract: a topic, an opaque payload, and the
// message id consumers deduplicate on.
type Message struct {
	Topic     string `json:"topic"`
	MessageID string `json:"message_id"`
	Payload   []byte `json:"payload"`
}

// DLQTopic names the per-topic dead-letter stream.
func DLQTopic(topic string) string {
	return topic + dlqSuffix
}

func IsDLQTopic(topic string) bool {
	return strings.HasSuffix(topic, dlqSuffix)
}

func messageValues(msg Message) map[string]interface{} {
	return map[string]interface{}{
		"message_id": msg.MessageID,
		"payload":    string(msg.Payload),
	}
}

func messageFromValues(topic string, values map[string]interface{}) (Message, error) {
	id, ok := values["message_id"].(string)
	if !ok || id == "" {
		return Message{}, fmt.Errorf("entry on %q has no message_id", topic)
	}
	payload, _ := values["payload"].(string)
	return Message{Topic: topic, MessageID: id, Payload: []byte(payload)}, nil
}

// Handler processes one message. A non-nil error routes the message to the
// topic's dead-letter stream; it is never redelivered on the primary topic.
type Handler func(ctx context.Context, msg Message) error

type Broker struct {
	redisDB  redis.UniversalClient
	group    string
	consumer string
}

func New(redisDB redis.UniversalClient, group string) *Broker {
	return &Broker{
		redisDB:  redisDB,
		group:    group,
		consumer: fmt.Sprintf("%s-%s", group, uuid.NewString()),
	}
}

func (b *Broker) Publish(ctx context.Context, topic, messageID string, payload []byte) error {
	if messageID == "" {
		messageID = uuid.NewString()
	}
	return b.redisDB.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		MaxLen: maxStreamLength,
		Approx: true,
		Values: messageValues(Message{Topic: topic, MessageID: messageID, Payload: payload}),
	}).Err()
}

func (b *Broker) ensureGroup(ctx context.Context, topic string) error {
	err := b.redisDB.XGroupCreateMkStream(ctx, topic, b.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// Consume reads a topic with a consumer group and runs the handler with at
// most maxConcurrent parallel invocations. Entries left pending by a crashed
// consumer are re-claimed on startup.
func (b *Broker) Consume(ctx context.Context, topic string, maxConcurrent int64, handler Handler) error {
	if err := b.ensureGroup(ctx, topic); err != nil {
		return err
	}
	b.recoverPending(ctx, topic, handler)

	sem := semaphore.NewWeighted(maxConcurrent)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		streams, err := b.redisDB.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.group,
			Consumer: b.consumer,
			Streams:  []string{topic, ">"},
			Count:    readCount,
			Block:    readBlock,
		}).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("broker: read %s: %v", topic, err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, entry := range stream.Messages {
				if err := sem.Acquire(ctx, 1); err != nil {
					return err
				}
				entry := entry
				go func() {
					defer sem.Release(1)
					b.dispatch(ctx, topic, entry, handler)
				}()
			}
		}
	}
}

func (b *Broker) dispatch(ctx context.Context, topic string, entry redis.XMessage, handler Handler) {
	msg, err := messageFromValues(topic, entry.Values)
	if err != nil {
		// structurally invalid, nothing to retry
		log.Printf("broker: dropping %s entry %s: %v", topic, entry.ID, err)
		b.ack(ctx, topic, entry.ID)
		return
	}

	if err := handler(ctx, msg); err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			// shutdown interrupted the handler; the entry stays pending and
			// pending-entry recovery redelivers it
			log.Printf("broker: handler interrupted on %s (message %s), leaving entry pending", topic, msg.MessageID)
			return
		}
		log.Printf("broker: handler failed on %s (message %s), dead-lettering: %v", topic, msg.MessageID, err)
		if dlqErr := b.redisDB.XAdd(ctx, &redis.XAddArgs{
			Stream: DLQTopic(topic),
			Values: messageValues(msg),
		}).Err(); dlqErr != nil {
			log.Printf("broker: dead-letter %s failed, leaving entry pending: %v", topic, dlqErr)
			return
		}
	}
	b.ack(ctx, topic, entry.ID)
}

func (b *Broker) ack(ctx context.Context, topic, entryID string) {
	if err := b.redisDB.XAck(ctx, topic, b.group, entryID).Err(); err != nil {
		log.Printf("broker: ack %s/%s: %v", topic, entryID, err)
	}
}

// recoverPending re-processes entries claimed by consumers that died before
// acknowledging. Handlers deduplicate by message id, so redelivery is safe.
func (b *Broker) recoverPending(ctx context.Context, topic string, handler Handler) {
	start := "0-0"
	for {
		entries, next, err := b.redisDB.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   topic,
			Group:    b.group,
			Consumer: b.consumer,
			MinIdle:  claimMinIdle,
			Start:    start,
			Count:    100,
		}).Result()
		if err != nil {
			log.Printf("broker: recover %s: %v", topic, err)
			return
		}
		if len(entries) == 0 {
			return
		}

		log.Printf("broker: recovering %d pending entries on %s", len(entries), topic)
		for _, entry := range entries {
			b.dispatch(ctx, topic, entry, handler)
		}

		if next == "0-0" {
			return
		}
		start = next
	}
}

// DeadLetters returns up to limit messages parked on a topic's DLQ.
func (b *Broker) DeadLetters(ctx context.Context, topic string, limit int64) ([]Message, error) {
	entries, err := b.redisDB.XRangeN(ctx, DLQTopic(topic), "-", "+", limit).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(entries))
	for _, entry := range entries {
		msg, err := messageFromValues(topic, entry.Values)
		if err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// ReplayDeadLetters republishes every dead-lettered message back onto the
// primary topic and removes it from the DLQ. Replayed duplicates are handled
// by consumer-side dedup.
func (b *Broker) ReplayDeadLetters(ctx context.Context, topic string) (int, error) {
	entries, err := b.redisDB.XRange(ctx, DLQTopic(topic), "-", "+").Result()
	if err != nil {
		return 0, err
	}

	replayed := 0
	for _, entry := range entries {
		msg, err := messageFromValues(topic, entry.Values)
		if err != nil {
			continue
		}
		if err := b.Publish(ctx, topic, msg.MessageID, msg.Payload); err != nil {
			return replayed, err
		}
		if err := b.redisDB.XDel(ctx, DLQTopic(topic), entry.ID).Err(); err != nil {
			return replayed, err
		}
		replayed++
	}
	return replayed, nil
}
