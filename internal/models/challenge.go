package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Challenge struct {
	bun.BaseModel `bun:"table:challenge"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Name          string    `bun:"name" json:"name"`
	Description   string    `bun:"description" json:"description"`
	Condition     string    `bun:"condition" json:"condition"`
	Tier          string    `bun:"tier" json:"tier"`
	Point         int       `bun:"point" json:"point"`
	IsDeleted     bool      `bun:"is_deleted" json:"is_deleted"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
}

// ChallengeHistory keeps one row per (user, challenge). IsAchieved is
// monotonic: once true it never flips back.
type ChallengeHistory struct {
	bun.BaseModel   `bun:"table:challenge_history"`
	ID              int64      `bun:"id,pk,autoincrement" json:"id"`
	UserID          int64      `bun:"user_id" json:"user_id"`
	ChallengeID     int64      `bun:"challenge_id" json:"challenge_id"`
	IsAchieved      bool       `bun:"is_achieved" json:"is_achieved"`
	AchievedAt      *time.Time `bun:"achieved_at" json:"achieved_at"`
	CurrentProgress int        `bun:"current_progress" json:"current_progress"`
	TargetProgress  int        `bun:"target_progress" json:"target_progress"`
	UpdatedAt       time.Time  `bun:"updated_at,default:current_timestamp" json:"updated_at"`
}
