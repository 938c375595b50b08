package datastore

import (
	"context"
	"time"

	"githarvest/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableCollectionTrigger(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.CollectionTrigger)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.CollectionTrigger)(nil)).Index("index_collection_trigger_due").IfNotExists().Column("status", "priority", "scheduled_at").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.CollectionTrigger)(nil)).Index("index_collection_trigger_user_id").IfNotExists().Column("user_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertTrigger(ctx context.Context, db bun.IDB, trigger *models.CollectionTrigger) error {
	_, err := db.NewInsert().Model(trigger).Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

// ClaimDueTrigger flips the single most urgent due PENDING trigger to
// PROCESSING in one conditional update. The affected-row count is the
// concurrency guard: zero rows means another instance won the claim (or
// nothing is due) and the caller must not proceed. Returns nil when no
// trigger was claimed.
func ClaimDueTrigger(ctx context.Context, db bun.IDB, now time.Time) (*models.CollectionTrigger, error) {
	var trigger models.CollectionTrigger
	res, err := db.NewUpdate().
		Model(&trigger).
		Set("status = ?", models.TriggerProcessing).
		Set("processed_at = ?", now).
		Where("id = (SELECT id FROM collection_trigger WHERE status = ? AND scheduled_at <= ? ORDER BY priority, scheduled_at LIMIT 1 FOR UPDATE SKIP LOCKED)",
			models.TriggerPending, now).
		Where("collection_trigger.status = ?", models.TriggerPending).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	return &trigger, nil
}

func MarkTriggerOutcome(ctx context.Context, db bun.IDB, triggerID int64, status models.TriggerStatus) error {
	_, err := db.NewUpdate().
		Model((*models.CollectionTrigger)(nil)).
		Set("status = ?", status).
		Where("id = ?", triggerID).
		Exec(ctx)
	return err
}

func HasPendingTrigger(ctx context.Context, db bun.IDB, userID int64) (bool, error) {
	count, err := db.NewSelect().
		Model((*models.CollectionTrigger)(nil)).
		Where("user_id = ? AND status IN (?, ?)", userID, models.TriggerPending, models.TriggerProcessing).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
