package services

import (
	"testing"

	"githarvest/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointEarnedNotification(t *testing.T) {
	n := pointEarnedNotification(models.PointChangedEvent{
		UserID: 42,
		Amount: 50,
		Reason: "Challenge completed: Centurion",
		Source: models.PointSourceChallenge,
	})

	assert.Equal(t, int64(42), n.UserID)
	assert.Equal(t, models.NotificationPointEarned, n.Type)
	assert.Contains(t, n.Message, "50 points")
	assert.Contains(t, n.Message, "Centurion")
}

func TestChallengeAchievedNotification(t *testing.T) {
	n := challengeAchievedNotification(models.ChallengeCompletedEvent{
		UserID:        42,
		ChallengeID:   7,
		ChallengeName: "Centurion",
		PointsAwarded: 50,
	})

	assert.Equal(t, models.NotificationChallengeAchieved, n.Type)
	require.NotNil(t, n.ReferenceID)
	assert.Equal(t, int64(7), *n.ReferenceID)
	assert.Contains(t, n.Message, `"Centurion"`)
}
