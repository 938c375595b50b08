package models

import (
	"time"

	"github.com/uptrace/bun"
)

const PointSourceChallenge = "CHALLENGE"

type PointTransaction struct {
	bun.BaseModel `bun:"table:point_transaction"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID        int64     `bun:"user_id" json:"user_id"`
	Amount        int       `bun:"amount" json:"amount"`
	Reason        string    `bun:"reason" json:"reason"`
	Source        string    `bun:"source" json:"source"`
	BalanceAfter  int       `bun:"balance_after" json:"balance_after"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
}
