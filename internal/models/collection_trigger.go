package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TriggerStatus string

const (
	TriggerPending    TriggerStatus = "PENDING"
	TriggerProcessing TriggerStatus = "PROCESSING"
	TriggerDone       TriggerStatus = "DONE"
	TriggerFailed     TriggerStatus = "FAILED"
)

// TriggerPriority sorts ascending: lower value runs sooner.
type TriggerPriority int

const (
	PriorityHigh TriggerPriority = 0
	PriorityLow  TriggerPriority = 1
)

// CollectionTrigger is the persisted "a collection run is due" record.
// Rows are never deleted; each cycle creates a fresh row for the next run.
type CollectionTrigger struct {
	bun.BaseModel `bun:"table:collection_trigger"`
	ID            int64           `bun:"id,pk,autoincrement" json:"id"`
	UserID        int64           `bun:"user_id" json:"user_id"`
	Status        TriggerStatus   `bun:"status" json:"status"`
	Priority      TriggerPriority `bun:"priority" json:"priority"`
	ScheduledAt   time.Time       `bun:"scheduled_at" json:"scheduled_at"`
	ProcessedAt   *time.Time      `bun:"processed_at" json:"processed_at"`
	CreatedAt     time.Time       `bun:"created_at,default:current_timestamp" json:"created_at"`
}

func NewImmediateTrigger(userID int64) *CollectionTrigger {
	return &CollectionTrigger{
		UserID:      userID,
		Status:      TriggerPending,
		Priority:    PriorityHigh,
		ScheduledAt: time.Now(),
	}
}

func NewScheduledTrigger(userID int64, at time.Time) *CollectionTrigger {
	return &CollectionTrigger{
		UserID:      userID,
		Status:      TriggerPending,
		Priority:    PriorityLow,
		ScheduledAt: at,
	}
}
