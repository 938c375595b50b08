package datastore

import (
	"context"

	"githarvest/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableProcessedMessage(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.ProcessedMessage)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

// InsertProcessedMessage records a message id in the dedup ledger. The
// primary-key constraint is the correctness mechanism under concurrent
// delivery: the insert reports false when the id was already recorded.
func InsertProcessedMessage(ctx context.Context, db bun.IDB, messageID, topic string) (bool, error) {
	res, err := db.NewInsert().
		Model(&models.ProcessedMessage{MessageID: messageID, Topic: topic}).
		On("CONFLICT (message_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
