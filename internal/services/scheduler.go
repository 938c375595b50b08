package services

import (
	"context"
	"errors"
	"log"
	"runtime"
	"time"

	"githarvest/internal/datastore"
	"githarvest/internal/datastore/redis_store"
	"githarvest/internal/github"
	"githarvest/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"golang.org/x/sync/semaphore"
)

type ServiceScheduler struct {
	container  *do.Injector
	postgresDB *bun.DB
	redisDB    redis.UniversalClient
	collector  *ServiceCollector
}

func NewServiceScheduler(container *do.Injector) (*ServiceScheduler, error) {
	db, err := do.InvokeNamed[*bun.DB](container, "db")
	if err != nil {
		return nil, err
	}

	redisDB, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
	if err != nil {
		return nil, err
	}

	collector, err := do.Invoke[*ServiceCollector](container)
	if err != nil {
		return nil, err
	}

	return &ServiceScheduler{
		container:  container,
		postgresDB: db,
		redisDB:    redisDB,
		collector:  collector,
	}, nil
}

// Bootstrap seeds a pending trigger for every active user that has none,
// so a fresh deployment starts collecting without manual intervention.
func (service *ServiceScheduler) Bootstrap(ctx context.Context) error {
	userIDs, err := datastore.ActiveUserIDs(ctx, service.postgresDB)
	if err != nil {
		return err
	}

	seeded := 0
	for _, userID := range userIDs {
		pending, err := datastore.HasPendingTrigger(ctx, service.postgresDB, userID)
		if err != nil {
			return err
		}
		if pending {
			continue
		}
		if err := datastore.InsertTrigger(ctx, service.postgresDB, models.NewImmediateTrigger(userID)); err != nil {
			return err
		}
		seeded++
	}

	if seeded > 0 {
		log.Printf("scheduler: seeded %d collection triggers", seeded)
	}
	return nil
}

// RequestCollection records a manual collection request. The request flows
// through the outbox and the collection-trigger topic, so it gets the same
// durability and dedup as every other event before it lands in the queue.
func (service *ServiceScheduler) RequestCollection(ctx context.Context, userID int64) error {
	user, err := datastore.FindUserByID(ctx, service.postgresDB, userID)
	if err != nil {
		return err
	}
	if user == nil || user.IsDeleted || user.GithubLogin == "" {
		return ErrUserNotCollectable
	}

	return datastore.AppendOutboxEvent(ctx, service.postgresDB, TOPIC_COLLECTION_TRIGGER, models.CollectionRequestedEvent{UserID: userID})
}

// Run drives the scheduling loop until the context is canceled. Each tick
// promotes due trigger rows into the redis queue, then drains due queue
// entries into bounded concurrent collection runs.
func (service *ServiceScheduler) Run(ctx context.Context) error {
	workers := semaphore.NewWeighted(int64(runtime.NumCPU()))
	ticker := time.NewTicker(QUEUE_POLL_INTERVAL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := service.tick(ctx, workers); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("scheduler: tick: %v", err)
			}
		}
	}
}

func (service *ServiceScheduler) tick(ctx context.Context, workers *semaphore.Weighted) error {
	now := time.Now()

	// promote every due trigger; each claim is its own transaction so a
	// crash mid-batch loses at most the claimed-but-unqueued trigger, and
	// that one is still marked PROCESSING for operators to find
	for {
		trigger, err := datastore.ClaimDueTrigger(ctx, service.postgresDB, now)
		if err != nil {
			return err
		}
		if trigger == nil {
			break
		}

		entry := models.JobQueueEntry{
			UserID:    trigger.UserID,
			RunID:     uuid.NewString(),
			TriggerID: trigger.ID,
		}
		if err := redis_store.EnqueueJob(ctx, service.redisDB, entry, now, trigger.Priority); err != nil {
			return err
		}
	}

	for {
		entry, err := redis_store.DequeueJob(ctx, service.redisDB, now)
		if err != nil {
			return err
		}
		if entry == nil {
			return nil
		}
		if err := service.dispatch(ctx, workers, *entry); err != nil {
			return err
		}
	}
}

func (service *ServiceScheduler) dispatch(ctx context.Context, workers *semaphore.Weighted, entry models.JobQueueEntry) error {
	user, err := datastore.FindUserByID(ctx, service.postgresDB, entry.UserID)
	if err != nil {
		return err
	}
	if user == nil || user.IsDeleted || user.GithubLogin == "" {
		log.Printf("scheduler: dropping run for user %d, not collectable", entry.UserID)
		if entry.TriggerID != 0 {
			return datastore.MarkTriggerOutcome(ctx, service.postgresDB, entry.TriggerID, models.TriggerFailed)
		}
		return nil
	}

	acquired, err := redis_store.AcquireRunLock(ctx, service.redisDB, entry.UserID)
	if err != nil {
		return err
	}
	if !acquired {
		// a run is already in flight, push this one back a bit
		return redis_store.EnqueueJob(ctx, service.redisDB, entry, time.Now().Add(REQUEUE_DELAY), models.PriorityHigh)
	}

	if err := workers.Acquire(ctx, 1); err != nil {
		_ = redis_store.ReleaseRunLock(ctx, service.redisDB, entry.UserID)
		return err
	}

	go func() {
		defer workers.Release(1)
		defer func() {
			if err := redis_store.ReleaseRunLock(ctx, service.redisDB, entry.UserID); err != nil {
				log.Printf("scheduler: release run lock for user %d: %v", entry.UserID, err)
			}
		}()
		service.runCollection(ctx, entry)
	}()
	return nil
}

func (service *ServiceScheduler) runCollection(ctx context.Context, entry models.JobQueueEntry) {
	backoff, runErr := service.collector.Collect(ctx, entry.UserID)
	if runErr != nil {
		log.Printf("scheduler: collection for user %d (run %s) failed: %v", entry.UserID, entry.RunID, runErr)
	}

	if entry.TriggerID != 0 {
		status := models.TriggerDone
		if runErr != nil {
			status = models.TriggerFailed
		}
		if err := datastore.MarkTriggerOutcome(ctx, service.postgresDB, entry.TriggerID, status); err != nil {
			log.Printf("scheduler: mark trigger %d: %v", entry.TriggerID, err)
		}
	}

	if errors.Is(runErr, ErrUserNotCollectable) {
		return
	}

	next := models.NewScheduledTrigger(entry.UserID, nextRunAt(time.Now(), backoff, runErr))
	if err := datastore.InsertTrigger(ctx, service.postgresDB, next); err != nil {
		log.Printf("scheduler: schedule next run for user %d: %v", entry.UserID, err)
	}
}

// nextRunAt decides when a user's next collection should happen. Rate-limit
// pressure wins over the failure and success intervals: running earlier than
// the quota reset would only burn the retry.
func nextRunAt(now time.Time, backoff time.Duration, runErr error) time.Time {
	var rateLimited *github.RateLimitError
	if errors.As(runErr, &rateLimited) {
		return now.Add(rateLimited.Wait)
	}
	if backoff > 0 {
		return now.Add(backoff)
	}
	if runErr != nil {
		return now.Add(FAILURE_INTERVAL)
	}
	return now.Add(SUCCESS_INTERVAL)
}
