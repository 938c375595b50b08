package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"githarvest/internal/datastore"
	"githarvest/internal/datastore/redis_store"
	"githarvest/internal/models"
	"githarvest/internal/pkg/broker"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"
)

type dedupLedger interface {
	InsertProcessed(ctx context.Context, messageID, topic string) (bool, error)
}

type pgDedupLedger struct {
	db bun.IDB
}

func (l pgDedupLedger) InsertProcessed(ctx context.Context, messageID, topic string) (bool, error) {
	return datastore.InsertProcessedMessage(ctx, l.db, messageID, topic)
}

// runIdempotent runs the action only if this message id has never been seen.
// The caller keeps the ledger insert and the action in one transaction, so a
// crash between them rolls both back and redelivery retries cleanly.
func runIdempotent(ctx context.Context, ledger dedupLedger, msg broker.Message, action func(ctx context.Context) error) error {
	fresh, err := ledger.InsertProcessed(ctx, msg.MessageID, msg.Topic)
	if err != nil {
		return err
	}
	if !fresh {
		log.Printf("consumer: skipping duplicate %s on %s", msg.MessageID, msg.Topic)
		return nil
	}
	return action(ctx)
}

// ServiceConsumers subscribes the four pipeline topics and applies each
// event exactly once per message id.
type ServiceConsumers struct {
	container  *do.Injector
	postgresDB *bun.DB
	redisDB    redis.UniversalClient
	broker     *broker.Broker
}

func NewServiceConsumers(container *do.Injector) (*ServiceConsumers, error) {
	db, err := do.InvokeNamed[*bun.DB](container, "db")
	if err != nil {
		return nil, err
	}

	redisDB, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
	if err != nil {
		return nil, err
	}

	b, err := do.Invoke[*broker.Broker](container)
	if err != nil {
		return nil, err
	}

	return &ServiceConsumers{
		container:  container,
		postgresDB: db,
		redisDB:    redisDB,
		broker:     b,
	}, nil
}

func (service *ServiceConsumers) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return service.broker.Consume(ctx, TOPIC_COLLECTION_TRIGGER, CONSUMER_CONCURRENCY, service.handleCollectionRequested)
	})
	group.Go(func() error {
		return service.broker.Consume(ctx, TOPIC_CHALLENGE_EVALUATION, CONSUMER_CONCURRENCY, service.handleChallengeEvaluation)
	})
	group.Go(func() error {
		return service.broker.Consume(ctx, TOPIC_POINT_CHANGED, CONSUMER_CONCURRENCY, service.handlePointChanged)
	})
	group.Go(func() error {
		return service.broker.Consume(ctx, TOPIC_CHALLENGE_COMPLETED, CONSUMER_CONCURRENCY, service.handleChallengeCompleted)
	})
	return group.Wait()
}

// handleTx wraps a handler body in one transaction together with the dedup
// ledger insert.
func (service *ServiceConsumers) handleTx(ctx context.Context, msg broker.Message, action func(ctx context.Context, tx bun.Tx) error) error {
	return service.postgresDB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return runIdempotent(ctx, pgDedupLedger{tx}, msg, func(ctx context.Context) error {
			return action(ctx, tx)
		})
	})
}

func decode[T any](msg broker.Message) (T, bool) {
	var event T
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		// poison message, retrying can never help
		log.Printf("consumer: malformed payload on %s (message %s): %v", msg.Topic, msg.MessageID, err)
		return event, false
	}
	return event, true
}

func (service *ServiceConsumers) handleCollectionRequested(ctx context.Context, msg broker.Message) error {
	event, ok := decode[models.CollectionRequestedEvent](msg)
	if !ok {
		return nil
	}

	return service.handleTx(ctx, msg, func(ctx context.Context, tx bun.Tx) error {
		user, err := datastore.FindUserByID(ctx, tx, event.UserID)
		if err != nil {
			return err
		}
		if user == nil || user.IsDeleted || user.GithubLogin == "" {
			log.Printf("consumer: ignoring collection request for user %d, not collectable", event.UserID)
			return nil
		}

		entry := models.JobQueueEntry{UserID: event.UserID, RunID: msg.MessageID}
		return redis_store.EnqueueJob(ctx, service.redisDB, entry, time.Now(), models.PriorityHigh)
	})
}

func (service *ServiceConsumers) handleChallengeEvaluation(ctx context.Context, msg broker.Message) error {
	event, ok := decode[models.ChallengeEvaluationRequest](msg)
	if !ok {
		return nil
	}

	return service.handleTx(ctx, msg, func(ctx context.Context, tx bun.Tx) error {
		return evaluateUser(ctx, pgChallengeStore{tx}, event.UserID, time.Now())
	})
}

func (service *ServiceConsumers) handlePointChanged(ctx context.Context, msg broker.Message) error {
	event, ok := decode[models.PointChangedEvent](msg)
	if !ok {
		return nil
	}

	return service.handleTx(ctx, msg, func(ctx context.Context, tx bun.Tx) error {
		if err := ApplyPointChangeTx(ctx, tx, event); err != nil {
			return err
		}
		return CreateNotificationTx(ctx, tx, pointEarnedNotification(event))
	})
}

func (service *ServiceConsumers) handleChallengeCompleted(ctx context.Context, msg broker.Message) error {
	event, ok := decode[models.ChallengeCompletedEvent](msg)
	if !ok {
		return nil
	}

	return service.handleTx(ctx, msg, func(ctx context.Context, tx bun.Tx) error {
		return CreateNotificationTx(ctx, tx, challengeAchievedNotification(event))
	})
}
