package datastore

import (
	"context"

	"githarvest/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableNotification(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Notification)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Notification)(nil)).Index("index_notification_user_id").IfNotExists().Column("user_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertNotification(ctx context.Context, db bun.IDB, notification *models.Notification) error {
	_, err := db.NewInsert().Model(notification).Exec(ctx)
	return err
}
