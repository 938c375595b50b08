package datastore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"githarvest/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableChallenge(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Challenge)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateTable().Model((*models.ChallengeHistory)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.ChallengeHistory)(nil)).Index("index_challenge_history_user_challenge").IfNotExists().Unique().Column("user_id", "challenge_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func ActiveChallenges(ctx context.Context, db bun.IDB) ([]models.Challenge, error) {
	var challenges []models.Challenge
	err := db.NewSelect().
		Model(&challenges).
		Where("is_deleted = FALSE").
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return challenges, nil
}

func GetChallengeHistory(ctx context.Context, db bun.IDB, userID, challengeID int64) (*models.ChallengeHistory, error) {
	var history models.ChallengeHistory
	err := db.NewSelect().
		Model(&history).
		Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &history, nil
}

func UpsertChallengeProgress(ctx context.Context, db bun.IDB, history *models.ChallengeHistory) error {
	_, err := db.NewInsert().
		Model(history).
		On("CONFLICT (user_id, challenge_id) DO UPDATE").
		Set("current_progress = EXCLUDED.current_progress").
		Set("target_progress = EXCLUDED.target_progress").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// AchieveChallenge is a one-way transition guarded by the affected-row
// count: it reports false when the history row was already achieved, so a
// concurrent or repeated evaluation cannot double-award.
func AchieveChallenge(ctx context.Context, db bun.IDB, userID, challengeID int64, at time.Time, progress int) (bool, error) {
	res, err := db.NewUpdate().
		Model((*models.ChallengeHistory)(nil)).
		Set("is_achieved = TRUE").
		Set("achieved_at = ?", at).
		Set("current_progress = ?", progress).
		Set("updated_at = ?", at).
		Where("user_id = ? AND challenge_id = ? AND is_achieved = FALSE", userID, challengeID).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
