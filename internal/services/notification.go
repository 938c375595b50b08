package services

import (
	"context"
	"fmt"

	"githarvest/internal/datastore"
	"githarvest/internal/models"

	"github.com/uptrace/bun"
)

func pointEarnedNotification(event models.PointChangedEvent) *models.Notification {
	return &models.Notification{
		UserID:  event.UserID,
		Type:    models.NotificationPointEarned,
		Title:   "Points earned",
		Message: fmt.Sprintf("You earned %d points. %s", event.Amount, event.Reason),
	}
}

func challengeAchievedNotification(event models.ChallengeCompletedEvent) *models.Notification {
	return &models.Notification{
		UserID:      event.UserID,
		Type:        models.NotificationChallengeAchieved,
		Title:       "Challenge completed",
		Message:     fmt.Sprintf("You completed %q and earned %d points.", event.ChallengeName, event.PointsAwarded),
		ReferenceID: &event.ChallengeID,
	}
}

func CreateNotificationTx(ctx context.Context, tx bun.IDB, notification *models.Notification) error {
	return datastore.InsertNotification(ctx, tx, notification)
}
