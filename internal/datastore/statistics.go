package datastore

import (
	"context"
	"database/sql"
	"errors"

	"githarvest/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableStatistics(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.GithubUserStatistics)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.GithubUserStatistics)(nil)).Index("index_github_user_statistics_user_id").IfNotExists().Unique().Column("user_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateTable().Model((*models.PlatformStatistics)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.PlatformStatistics)(nil)).Index("index_platform_statistics_stat_key").IfNotExists().Unique().Column("stat_key").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func GetUserStatistics(ctx context.Context, db bun.IDB, userID int64) (*models.GithubUserStatistics, error) {
	var stats models.GithubUserStatistics
	err := db.NewSelect().Model(&stats).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// ReplaceUserStatistics upserts the row for stats.UserID, replacing every
// derived column. Partial merges are not allowed: a run either rewrites the
// whole row or writes nothing.
func ReplaceUserStatistics(ctx context.Context, db bun.IDB, stats *models.GithubUserStatistics) error {
	_, err := db.NewInsert().
		Model(stats).
		On("CONFLICT (user_id) DO UPDATE").
		Set("github_login = EXCLUDED.github_login").
		Set("total_commits = EXCLUDED.total_commits").
		Set("total_prs = EXCLUDED.total_prs").
		Set("total_issues = EXCLUDED.total_issues").
		Set("total_stars_received = EXCLUDED.total_stars_received").
		Set("total_score = EXCLUDED.total_score").
		Set("calculated_at = EXCLUDED.calculated_at").
		Exec(ctx)
	return err
}

// PlatformAverages recomputes the platform row from all user statistics.
// Zero tracked users yields zeros, not an error.
func PlatformAverages(ctx context.Context, db bun.IDB) (*models.PlatformStatistics, error) {
	var stats models.PlatformStatistics
	err := db.NewSelect().
		ColumnExpr("COALESCE(AVG(total_commits), 0) AS avg_commit_count").
		ColumnExpr("COALESCE(AVG(total_stars_received), 0) AS avg_star_count").
		ColumnExpr("COALESCE(AVG(total_prs), 0) AS avg_pr_count").
		ColumnExpr("COALESCE(AVG(total_issues), 0) AS avg_issue_count").
		ColumnExpr("COUNT(*) AS total_user_count").
		TableExpr("github_user_statistics").
		Scan(ctx, &stats)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func ReplacePlatformStatistics(ctx context.Context, db bun.IDB, stats *models.PlatformStatistics) error {
	_, err := db.NewInsert().
		Model(stats).
		On("CONFLICT (stat_key) DO UPDATE").
		Set("avg_commit_count = EXCLUDED.avg_commit_count").
		Set("avg_star_count = EXCLUDED.avg_star_count").
		Set("avg_pr_count = EXCLUDED.avg_pr_count").
		Set("avg_issue_count = EXCLUDED.avg_issue_count").
		Set("total_user_count = EXCLUDED.total_user_count").
		Set("calculated_at = EXCLUDED.calculated_at").
		Exec(ctx)
	return err
}

func GetPlatformStatistics(ctx context.Context, db bun.IDB, statKey string) (*models.PlatformStatistics, error) {
	var stats models.PlatformStatistics
	err := db.NewSelect().Model(&stats).Where("stat_key = ?", statKey).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
