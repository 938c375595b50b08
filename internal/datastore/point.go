package datastore

import (
	"context"

	"githarvest/internal/models"

	"github.com/uptrace/bun"
)

func CreateTablePointTransaction(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.PointTransaction)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.PointTransaction)(nil)).Index("index_point_transaction_user_id").IfNotExists().Column("user_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func UserPointBalance(ctx context.Context, db bun.IDB, userID int64) (int, error) {
	var balance int
	err := db.NewSelect().
		ColumnExpr("COALESCE(SUM(amount), 0)").
		TableExpr("point_transaction").
		Where("user_id = ?", userID).
		Scan(ctx, &balance)
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func InsertPointTransaction(ctx context.Context, db bun.IDB, tx *models.PointTransaction) error {
	_, err := db.NewInsert().Model(tx).Exec(ctx)
	return err
}
