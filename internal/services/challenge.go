package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"githarvest/internal/datastore"
	"githarvest/internal/models"
	"githarvest/internal/pkg/rules"

	"github.com/uptrace/bun"
)

type challengeStore interface {
	ActiveChallenges(ctx context.Context) ([]models.Challenge, error)
	UserStatistics(ctx context.Context, userID int64) (*models.GithubUserStatistics, error)
	History(ctx context.Context, userID, challengeID int64) (*models.ChallengeHistory, error)
	UpsertProgress(ctx context.Context, history *models.ChallengeHistory) error
	Achieve(ctx context.Context, userID, challengeID int64, at time.Time, progress int) (bool, error)
	AppendEvent(ctx context.Context, topic string, event any) error
}

type pgChallengeStore struct {
	db bun.IDB
}

func (s pgChallengeStore) ActiveChallenges(ctx context.Context) ([]models.Challenge, error) {
	return datastore.ActiveChallenges(ctx, s.db)
}

func (s pgChallengeStore) UserStatistics(ctx context.Context, userID int64) (*models.GithubUserStatistics, error) {
	return datastore.GetUserStatistics(ctx, s.db, userID)
}

func (s pgChallengeStore) History(ctx context.Context, userID, challengeID int64) (*models.ChallengeHistory, error) {
	return datastore.GetChallengeHistory(ctx, s.db, userID, challengeID)
}

func (s pgChallengeStore) UpsertProgress(ctx context.Context, history *models.ChallengeHistory) error {
	return datastore.UpsertChallengeProgress(ctx, s.db, history)
}

func (s pgChallengeStore) Achieve(ctx context.Context, userID, challengeID int64, at time.Time, progress int) (bool, error) {
	return datastore.AchieveChallenge(ctx, s.db, userID, challengeID, at, progress)
}

func (s pgChallengeStore) AppendEvent(ctx context.Context, topic string, event any) error {
	return datastore.AppendOutboxEvent(ctx, s.db, topic, event)
}

func activitySnapshot(stats *models.GithubUserStatistics) map[string]interface{} {
	return map[string]interface{}{
		"commits": float64(stats.TotalCommits),
		"prs":     float64(stats.TotalPrs),
		"issues":  float64(stats.TotalIssues),
		"stars":   float64(stats.TotalStarsReceived),
		"score":   stats.TotalScore,
	}
}

// evaluateUser recomputes every active challenge against the user's current
// statistics. Achievement is one-way: the conditional update in Achieve
// guarantees the reward events fire exactly once per (user, challenge) even
// across concurrent or replayed evaluations.
func evaluateUser(ctx context.Context, store challengeStore, userID int64, now time.Time) error {
	stats, err := store.UserStatistics(ctx, userID)
	if err != nil {
		return err
	}
	if stats == nil {
		return nil
	}

	challenges, err := store.ActiveChallenges(ctx)
	if err != nil {
		return err
	}

	snapshot := activitySnapshot(stats)
	for _, challenge := range challenges {
		if err := evaluateChallenge(ctx, store, userID, challenge, snapshot, now); err != nil {
			return fmt.Errorf("challenge %d for user %d: %w", challenge.ID, userID, err)
		}
	}
	return nil
}

func evaluateChallenge(ctx context.Context, store challengeStore, userID int64, challenge models.Challenge, snapshot map[string]interface{}, now time.Time) error {
	progress, err := rules.Progress(challenge.Condition, snapshot)
	if err != nil {
		// a broken condition must not block the rest of the batch
		log.Printf("challenge: skipping %d (%s): %v", challenge.ID, challenge.Name, err)
		return nil
	}

	history, err := store.History(ctx, userID, challenge.ID)
	if err != nil {
		return err
	}
	if history != nil && history.IsAchieved {
		return nil
	}

	if err := store.UpsertProgress(ctx, &models.ChallengeHistory{
		UserID:          userID,
		ChallengeID:     challenge.ID,
		CurrentProgress: progress,
		TargetProgress:  100,
		UpdatedAt:       now,
	}); err != nil {
		return err
	}

	if progress < 100 {
		return nil
	}

	achieved, err := store.Achieve(ctx, userID, challenge.ID, now, progress)
	if err != nil {
		return err
	}
	if !achieved {
		return nil
	}

	if err := store.AppendEvent(ctx, TOPIC_POINT_CHANGED, models.PointChangedEvent{
		UserID: userID,
		Amount: challenge.Point,
		Reason: fmt.Sprintf("Challenge completed: %s", challenge.Name),
		Source: models.PointSourceChallenge,
	}); err != nil {
		return err
	}
	return store.AppendEvent(ctx, TOPIC_CHALLENGE_COMPLETED, models.ChallengeCompletedEvent{
		UserID:        userID,
		ChallengeID:   challenge.ID,
		ChallengeName: challenge.Name,
		PointsAwarded: challenge.Point,
	})
}
