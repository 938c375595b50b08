package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"githarvest/internal/github"
	"githarvest/internal/interfaces"
	"githarvest/internal/pkg/broker"
	"githarvest/internal/pkg/caching"
	"githarvest/internal/pkg/limiter"
	"githarvest/internal/services"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/hiendaovinh/toolkit/pkg/db"
	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")
}

func main() {
	vs, err := env.EnvsRequired(
		"DB_DSN",
		"REDIS_URL",
		"GITHUB_TOKEN",
	)
	if err != nil {
		log.Fatal(err)
	}

	container := NewContainer(vs)

	app := &cli.App{
		Name: "harvester",
		Commands: []*cli.Command{
			commandRun(container),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandRun(container *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "start the scheduler, outbox publisher, consumers and aggregator",
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			scheduler, err := do.Invoke[*services.ServiceScheduler](container)
			if err != nil {
				return err
			}
			outbox, err := do.Invoke[*services.ServiceOutbox](container)
			if err != nil {
				return err
			}
			consumers, err := do.Invoke[*services.ServiceConsumers](container)
			if err != nil {
				return err
			}
			aggregator, err := do.Invoke[*services.ServiceAggregator](container)
			if err != nil {
				return err
			}

			if err := scheduler.Bootstrap(ctx); err != nil {
				return err
			}

			cronRunner := cron.New()
			aggregator.Start(cronRunner)
			cronRunner.Start()
			defer cronRunner.Stop()

			errWg, errCtx := errgroup.WithContext(ctx)
			errWg.Go(func() error {
				return scheduler.Run(errCtx)
			})
			errWg.Go(func() error {
				return outbox.Run(errCtx)
			})
			errWg.Go(func() error {
				return consumers.Run(errCtx)
			})

			log.Println("harvester running")
			err = errWg.Wait()
			if err == context.Canceled {
				return nil
			}
			return err
		},
	}
}

func NewContainer(vs map[string]string) *do.Injector {
	injector := do.New()

	do.ProvideNamedValue(injector, "envs", vs)

	do.ProvideNamed(injector, "db", func(i *do.Injector) (*bun.DB, error) {
		sqldb := sql.OpenDB(pgdriver.NewConnector(
			pgdriver.WithDSN(os.Getenv("DB_DSN")),
			pgdriver.WithPassword(os.Getenv("DB_PASSWORD")),
		))

		return bun.NewDB(sqldb, pgdialect.New()), nil
	})

	do.ProvideNamed(injector, "redis-db", func(i *do.Injector) (redis.UniversalClient, error) {
		clusterRedisURL := os.Getenv("CLUSTER_REDIS_URL")
		if clusterRedisURL != "" {
			clusterOpts, err := redis.ParseClusterURL(clusterRedisURL)
			if err != nil {
				return nil, err
			}
			return redis.NewClusterClient(clusterOpts), nil
		}
		return db.InitRedis(&db.RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		})
	})

	do.Provide(injector, func(i *do.Injector) (caching.Cache, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-db")
		if err != nil {
			return nil, err
		}

		return caching.NewCacheRedis(dbRedis, false)
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.Limiter, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-db")
		if err != nil {
			return nil, err
		}

		return limiter.NewLimiterRedis(dbRedis), nil
	})

	do.Provide(injector, func(i *do.Injector) (*redsync.Redsync, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-db")
		if err != nil {
			return nil, err
		}

		pool := goredis.NewPool(dbRedis)
		return redsync.New(pool), nil
	})

	do.Provide(injector, func(i *do.Injector) (*broker.Broker, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-db")
		if err != nil {
			return nil, err
		}

		return broker.New(dbRedis, services.CONSUMER_GROUP), nil
	})

	do.Provide(injector, func(i *do.Injector) (*github.Client, error) {
		rateLimiter, err := do.Invoke[interfaces.Limiter](i)
		if err != nil {
			return nil, err
		}

		return github.NewClient(os.Getenv("GITHUB_TOKEN"), rateLimiter), nil
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceCollector, error) {
		return services.NewServiceCollector(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceScheduler, error) {
		return services.NewServiceScheduler(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceOutbox, error) {
		return services.NewServiceOutbox(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceConsumers, error) {
		return services.NewServiceConsumers(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceAggregator, error) {
		return services.NewServiceAggregator(injector)
	})

	return injector
}
