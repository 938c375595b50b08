package services

import (
	"errors"
	"time"
)

var ErrUserNotCollectable = errors.New("user deleted or has no github login")

const (
	TOPIC_COLLECTION_TRIGGER   = "collection-trigger"
	TOPIC_CHALLENGE_EVALUATION = "challenge-evaluation"
	TOPIC_CHALLENGE_COMPLETED  = "challenge-completed"
	TOPIC_POINT_CHANGED        = "point-changed"

	CONSUMER_GROUP = "githarvest"

	CONFIG_WEIGHT_COMMIT = "SCORE_WEIGHT_COMMIT"
	CONFIG_WEIGHT_STAR   = "SCORE_WEIGHT_STAR"
	CONFIG_WEIGHT_PR     = "SCORE_WEIGHT_PR"
	CONFIG_WEIGHT_ISSUE  = "SCORE_WEIGHT_ISSUE"

	DEFAULT_WEIGHT_COMMIT = 1.0
	DEFAULT_WEIGHT_STAR   = 2.0
	DEFAULT_WEIGHT_PR     = 3.0
	DEFAULT_WEIGHT_ISSUE  = 1.5

	SUCCESS_INTERVAL = 2 * time.Hour
	FAILURE_INTERVAL = 1 * time.Hour
	REQUEUE_DELAY    = 1 * time.Minute

	QUEUE_POLL_INTERVAL   = 1 * time.Second
	OUTBOX_SWEEP_INTERVAL = 5 * time.Second
	OUTBOX_BATCH_SIZE     = 100
	CONSUMER_CONCURRENCY  = 5

	PLATFORM_STAT_KEY = "global"

	CACHE_TTL_5_MINS = 5 * time.Minute
	CACHE_TTL_1_HOUR = 1 * time.Hour
)
