package models

import (
	"time"

	"github.com/uptrace/bun"
)

type NotificationType string

const (
	NotificationPointEarned       NotificationType = "POINT_EARNED"
	NotificationChallengeAchieved NotificationType = "CHALLENGE_ACHIEVED"
)

type Notification struct {
	bun.BaseModel `bun:"table:notification"`
	ID            int64            `bun:"id,pk,autoincrement" json:"id"`
	UserID        int64            `bun:"user_id" json:"user_id"`
	Type          NotificationType `bun:"type" json:"type"`
	Title         string           `bun:"title" json:"title"`
	Message       string           `bun:"message" json:"message"`
	ReferenceID   *int64           `bun:"reference_id" json:"reference_id"`
	IsRead        bool             `bun:"is_read" json:"is_read"`
	CreatedAt     time.Time        `bun:"created_at,default:current_timestamp" json:"created_at"`
}
