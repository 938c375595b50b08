package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"githarvest/internal/datastore"
	"githarvest/internal/datastore/redis_store"
	"githarvest/internal/models"
	"githarvest/internal/pkg/caching"

	"github.com/go-redsync/redsync/v4"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

const CONFIG_CRONJOB_TIME_AGGREGATE = "CRONJOB_TIME_AGGREGATE"

func LockKeyAggregate() string {
	return "lock:aggregate:platform"
}

func DBKeyUserStatistics(userID int64) string {
	return fmt.Sprintf("stats:user:%d", userID)
}

// ServiceAggregator recomputes platform-wide averages on a schedule and
// serves the cached read paths.
type ServiceAggregator struct {
	container  *do.Injector
	postgresDB *bun.DB
	redisDB    redis.UniversalClient
	rs         *redsync.Redsync
	cache      caching.Cache
}

func NewServiceAggregator(container *do.Injector) (*ServiceAggregator, error) {
	db, err := do.InvokeNamed[*bun.DB](container, "db")
	if err != nil {
		return nil, err
	}

	redisDB, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
	if err != nil {
		return nil, err
	}

	rs, err := do.Invoke[*redsync.Redsync](container)
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	return &ServiceAggregator{
		container:  container,
		postgresDB: db,
		redisDB:    redisDB,
		rs:         rs,
		cache:      cache,
	}, nil
}

func (service *ServiceAggregator) Start(cronRunner *cron.Cron) {
	schedule := "@hourly"
	timeline, err := datastore.GetConfigByKey(context.Background(), service.postgresDB, CONFIG_CRONJOB_TIME_AGGREGATE)
	if err != nil {
		log.Println("aggregator: read cron config:", err)
	} else if timeline != nil && timeline.Value != "" {
		schedule = timeline.Value
	}

	_, err = cronRunner.AddFunc(schedule, service.runScheduledTask)
	log.Println("Aggregate Cronjob start at:", time.Now().Format("2006-01-02 15:04:05"), "cron:", schedule, err)
	service.runScheduledTask()
}

func (service *ServiceAggregator) runScheduledTask() {
	ctx := context.Background()

	// only one instance recomputes per cycle
	mutex := service.rs.NewMutex(LockKeyAggregate())
	if err := mutex.Lock(); err != nil {
		log.Println("aggregator: another instance holds the lock, skipping")
		return
	}
	// nolint:errcheck
	defer mutex.Unlock()

	if err := service.Aggregate(ctx); err != nil {
		log.Println("aggregator:", err)
	}
}

func (service *ServiceAggregator) Aggregate(ctx context.Context) error {
	stats, err := datastore.PlatformAverages(ctx, service.postgresDB)
	if err != nil {
		return err
	}
	stats.StatKey = PLATFORM_STAT_KEY
	stats.CalculatedAt = time.Now()

	if err := datastore.ReplacePlatformStatistics(ctx, service.postgresDB, stats); err != nil {
		return err
	}

	if err := redis_store.CachePlatformStatistics(ctx, service.redisDB, stats); err != nil {
		log.Println("aggregator: cache platform stats:", err)
	}

	log.Printf("aggregator: recomputed platform averages over %d users", stats.TotalUserCount)
	return nil
}

// PlatformStatistics serves the cached snapshot, falling back to postgres
// when the cache is cold.
func (service *ServiceAggregator) PlatformStatistics(ctx context.Context) (*models.PlatformStatistics, error) {
	cached, err := redis_store.CachedPlatformStatistics(ctx, service.redisDB, PLATFORM_STAT_KEY)
	if err != nil {
		log.Println("aggregator: read cached platform stats:", err)
	}
	if cached != nil {
		return cached, nil
	}

	return datastore.GetPlatformStatistics(ctx, service.postgresDB, PLATFORM_STAT_KEY)
}

func (service *ServiceAggregator) UserStatistics(ctx context.Context, userID int64) (*models.GithubUserStatistics, error) {
	callback := func() (*models.GithubUserStatistics, error) {
		return datastore.GetUserStatistics(ctx, service.postgresDB, userID)
	}

	return caching.UseCache(ctx, service.cache, DBKeyUserStatistics(userID), CACHE_TTL_5_MINS, callback)
}
