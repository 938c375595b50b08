package models

import (
	"time"

	"github.com/uptrace/bun"
)

type OutboxStatus string

const (
	OutboxPending OutboxStatus = "PENDING"
	OutboxSent    OutboxStatus = "SENT"
	OutboxFailed  OutboxStatus = "FAILED"
)

// OutboxMessage is written in the same transaction as the mutation that
// produced it. The payload is immutable; status only ever moves to SENT.
type OutboxMessage struct {
	bun.BaseModel `bun:"table:outbox_message"`
	ID            int64        `bun:"id,pk,autoincrement" json:"id"`
	MessageID     string       `bun:"message_id,unique" json:"message_id"`
	Topic         string       `bun:"topic" json:"topic"`
	Payload       string       `bun:"payload" json:"payload"`
	Status        OutboxStatus `bun:"status" json:"status"`
	CreatedAt     time.Time    `bun:"created_at,default:current_timestamp" json:"created_at"`
	PublishedAt   *time.Time   `bun:"published_at" json:"published_at"`
}

// ProcessedMessage is the append-only dedup ledger. Existence of a row
// permanently blocks reprocessing of that message id.
type ProcessedMessage struct {
	bun.BaseModel `bun:"table:processed_message"`
	MessageID     string    `bun:"message_id,pk" json:"message_id"`
	Topic         string    `bun:"topic" json:"topic"`
	ProcessedAt   time.Time `bun:"processed_at,default:current_timestamp" json:"processed_at"`
}
