package models

// JobQueueEntry is one per-user collection request held in the redis queue.
// RunID makes a logical run idempotent even if enqueued twice; TriggerID is
// zero when the entry did not originate from a claimed trigger row.
type JobQueueEntry struct {
	UserID    int64  `json:"user_id"`
	RunID     string `json:"run_id"`
	TriggerID int64  `json:"trigger_id"`
}
