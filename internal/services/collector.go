package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"githarvest/internal/datastore"
	"githarvest/internal/github"
	"githarvest/internal/models"

	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type ServiceCollector struct {
	container  *do.Injector
	postgresDB *bun.DB
	githubAPI  *github.Client
}

func NewServiceCollector(container *do.Injector) (*ServiceCollector, error) {
	db, err := do.InvokeNamed[*bun.DB](container, "db")
	if err != nil {
		return nil, err
	}

	githubAPI, err := do.Invoke[*github.Client](container)
	if err != nil {
		return nil, err
	}

	return &ServiceCollector{
		container:  container,
		postgresDB: db,
		githubAPI:  githubAPI,
	}, nil
}

type scoreWeights struct {
	commit float64
	star   float64
	pr     float64
	issue  float64
}

func (service *ServiceCollector) configWeight(ctx context.Context, key string, fallback float64) float64 {
	v, err := datastore.GetConfigFloat(ctx, service.postgresDB, key, fallback)
	if err != nil {
		log.Printf("collector: read config %s: %v, using %v", key, err, fallback)
	}
	return v
}

func (service *ServiceCollector) weights(ctx context.Context) scoreWeights {
	return scoreWeights{
		commit: service.configWeight(ctx, CONFIG_WEIGHT_COMMIT, DEFAULT_WEIGHT_COMMIT),
		star:   service.configWeight(ctx, CONFIG_WEIGHT_STAR, DEFAULT_WEIGHT_STAR),
		pr:     service.configWeight(ctx, CONFIG_WEIGHT_PR, DEFAULT_WEIGHT_PR),
		issue:  service.configWeight(ctx, CONFIG_WEIGHT_ISSUE, DEFAULT_WEIGHT_ISSUE),
	}
}

func weightedScore(w scoreWeights, commits, stars, prs, issues int) float64 {
	return w.commit*float64(commits) +
		w.star*float64(stars) +
		w.pr*float64(prs) +
		w.issue*float64(issues)
}

// Collect fetches a user's GitHub activity and replaces their statistics
// row. The fetch is all-or-nothing: any failed call aborts the run and the
// previous statistics stay intact. The returned duration is the rate-limit
// backoff observed during the run, zero when quota remains.
func (service *ServiceCollector) Collect(ctx context.Context, userID int64) (time.Duration, error) {
	user, err := datastore.FindUserByID(ctx, service.postgresDB, userID)
	if err != nil {
		return 0, err
	}
	if user == nil || user.IsDeleted || user.GithubLogin == "" {
		return 0, ErrUserNotCollectable
	}

	login := user.GithubLogin

	if _, err := service.githubAPI.Profile(ctx, login); err != nil {
		return service.githubAPI.Backoff(), fmt.Errorf("fetch profile %s: %w", login, err)
	}

	repos, err := service.githubAPI.Repositories(ctx, login)
	if err != nil {
		return service.githubAPI.Backoff(), fmt.Errorf("fetch repositories %s: %w", login, err)
	}
	stars := 0
	for _, repo := range repos {
		if !repo.Fork {
			stars += repo.StargazersCount
		}
	}

	commits, err := service.githubAPI.CommitCount(ctx, login)
	if err != nil {
		return service.githubAPI.Backoff(), fmt.Errorf("count commits %s: %w", login, err)
	}

	prs, err := service.githubAPI.PullRequestCount(ctx, login)
	if err != nil {
		return service.githubAPI.Backoff(), fmt.Errorf("count prs %s: %w", login, err)
	}

	issues, err := service.githubAPI.IssueCount(ctx, login)
	if err != nil {
		return service.githubAPI.Backoff(), fmt.Errorf("count issues %s: %w", login, err)
	}

	stats := &models.GithubUserStatistics{
		UserID:             userID,
		GithubLogin:        login,
		TotalCommits:       commits,
		TotalPrs:           prs,
		TotalIssues:        issues,
		TotalStarsReceived: stars,
		TotalScore:         weightedScore(service.weights(ctx), commits, stars, prs, issues),
		CalculatedAt:       time.Now(),
	}

	err = service.postgresDB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := datastore.ReplaceUserStatistics(ctx, tx, stats); err != nil {
			return err
		}
		return datastore.AppendOutboxEvent(ctx, tx, TOPIC_CHALLENGE_EVALUATION, models.ChallengeEvaluationRequest{UserID: userID})
	})
	if err != nil {
		return service.githubAPI.Backoff(), err
	}

	return service.githubAPI.Backoff(), nil
}
