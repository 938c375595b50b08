package models

import (
	"time"

	"github.com/uptrace/bun"
)

// GithubUserStatistics holds one row per tracked account. Derived fields are
// replaced wholesale on every successful collection, never merged.
type GithubUserStatistics struct {
	bun.BaseModel      `bun:"table:github_user_statistics"`
	ID                 int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID             int64     `bun:"user_id,unique" json:"user_id"`
	GithubLogin        string    `bun:"github_login" json:"github_login"`
	TotalCommits       int       `bun:"total_commits" json:"total_commits"`
	TotalPrs           int       `bun:"total_prs" json:"total_prs"`
	TotalIssues        int       `bun:"total_issues" json:"total_issues"`
	TotalStarsReceived int       `bun:"total_stars_received" json:"total_stars_received"`
	TotalScore         float64   `bun:"total_score" json:"total_score"`
	CalculatedAt       time.Time `bun:"calculated_at" json:"calculated_at"`
}

type PlatformStatistics struct {
	bun.BaseModel  `bun:"table:platform_statistics"`
	ID             int64     `bun:"id,pk,autoincrement" json:"id"`
	StatKey        string    `bun:"stat_key,unique" json:"stat_key"`
	AvgCommitCount float64   `bun:"avg_commit_count" json:"avg_commit_count"`
	AvgStarCount   float64   `bun:"avg_star_count" json:"avg_star_count"`
	AvgPrCount     float64   `bun:"avg_pr_count" json:"avg_pr_count"`
	AvgIssueCount  float64   `bun:"avg_issue_count" json:"avg_issue_count"`
	TotalUserCount int       `bun:"total_user_count" json:"total_user_count"`
	CalculatedAt   time.Time `bun:"calculated_at" json:"calculated_at"`
}
