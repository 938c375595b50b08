package datastore

import (
	"context"
	"encoding/json"
	"time"

	"githarvest/internal/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

func CreateTableOutbox(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.OutboxMessage)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.OutboxMessage)(nil)).Index("index_outbox_message_pending").IfNotExists().Column("status", "created_at").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// AppendOutboxEvent marshals the event and inserts it as a PENDING outbox
// row. Callers must pass the same bun.IDB (transaction) that carries the
// domain mutation the event describes.
func AppendOutboxEvent(ctx context.Context, db bun.IDB, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &models.OutboxMessage{
		MessageID: uuid.NewString(),
		Topic:     topic,
		Payload:   string(payload),
		Status:    models.OutboxPending,
	}
	_, err = db.NewInsert().Model(msg).Exec(ctx)
	return err
}

func PendingOutboxMessages(ctx context.Context, db bun.IDB, limit int) ([]models.OutboxMessage, error) {
	var messages []models.OutboxMessage
	err := db.NewSelect().
		Model(&messages).
		Where("status = ?", models.OutboxPending).
		OrderExpr("created_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func MarkOutboxSent(ctx context.Context, db bun.IDB, id int64, at time.Time) error {
	_, err := db.NewUpdate().
		Model((*models.OutboxMessage)(nil)).
		Set("status = ?", models.OutboxSent).
		Set("published_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	return err
}
