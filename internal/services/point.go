package services

import (
	"context"

	"githarvest/internal/datastore"
	"githarvest/internal/models"

	"github.com/uptrace/bun"
)

// ApplyPointChangeTx appends a ledger row with the balance after the change.
// Runs inside the consumer's transaction so the ledger and the dedup record
// commit together.
func ApplyPointChangeTx(ctx context.Context, tx bun.IDB, event models.PointChangedEvent) error {
	balance, err := datastore.UserPointBalance(ctx, tx, event.UserID)
	if err != nil {
		return err
	}

	return datastore.InsertPointTransaction(ctx, tx, &models.PointTransaction{
		UserID:       event.UserID,
		Amount:       event.Amount,
		Reason:       event.Reason,
		Source:       event.Source,
		BalanceAfter: balance + event.Amount,
	})
}
