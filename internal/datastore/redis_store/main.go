package redis_store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"githarvest/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	QUEUE_KEY          = "collect:queue"
	RUN_LOCK_TTL       = 30 * time.Minute
	PLATFORM_STATS_TTL = time.Hour
)

// Priority offsets are fractional so they only break ties between entries
// due in the same second; they never delay a due entry past its schedule.
const (
	offsetHigh = 0.0
	offsetLow  = 0.5
)

func dbKeyRunLock(userID int64) string {
	return fmt.Sprintf("collect:running:%d", userID)
}

func dbKeyPlatformStats(statKey string) string {
	return fmt.Sprintf("stats:platform:%s", statKey)
}

func queueScore(priority models.TriggerPriority, at time.Time) float64 {
	offset := offsetLow
	if priority == models.PriorityHigh {
		offset = offsetHigh
	}
	return float64(at.Unix()) + offset
}

func queueMember(entry models.JobQueueEntry) string {
	return fmt.Sprintf("%d:%s:%d", entry.UserID, entry.RunID, entry.TriggerID)
}

func parseQueueMember(member string) (models.JobQueueEntry, error) {
	parts := strings.Split(member, ":")
	if len(parts) != 3 {
		return models.JobQueueEntry{}, fmt.Errorf("malformed queue member: %q", member)
	}

	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return models.JobQueueEntry{}, fmt.Errorf("malformed queue member: %q", member)
	}
	triggerID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return models.JobQueueEntry{}, fmt.Errorf("malformed queue member: %q", member)
	}

	return models.JobQueueEntry{UserID: userID, RunID: parts[1], TriggerID: triggerID}, nil
}

// EnqueueJob adds a collection request to the priority queue. Re-enqueueing
// the same (userId, runId) pair only rescores the existing member, which is
// what makes a logical run idempotent.
func EnqueueJob(ctx context.Context, cmd redis.Cmdable, entry models.JobQueueEntry, at time.Time, priority models.TriggerPriority) error {
	return cmd.ZAdd(ctx, QUEUE_KEY, redis.Z{
		Score:  queueScore(priority, at),
		Member: queueMember(entry),
	}).Err()
}

// DequeueJob removes and returns the highest-priority due entry, or nil when
// nothing is due.
func DequeueJob(ctx context.Context, cmd redis.Cmdable, now time.Time) (*models.JobQueueEntry, error) {
	members, err := cmd.ZRangeByScore(ctx, QUEUE_KEY, &redis.ZRangeBy{
		Min:    "-inf",
		Max:    strconv.FormatFloat(float64(now.Unix())+offsetLow, 'f', -1, 64),
		Offset: 0,
		Count:  1,
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	removed, err := cmd.ZRem(ctx, QUEUE_KEY, members[0]).Result()
	if err != nil {
		return nil, err
	}
	if removed == 0 {
		// another poller removed it first
		return nil, nil
	}

	entry, err := parseQueueMember(members[0])
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// AcquireRunLock marks a user's collection as in flight. The TTL covers the
// crash case; normal completion releases explicitly.
func AcquireRunLock(ctx context.Context, cmd redis.Cmdable, userID int64) (bool, error) {
	return cmd.SetNX(ctx, dbKeyRunLock(userID), time.Now().Format(time.RFC3339), RUN_LOCK_TTL).Result()
}

func ReleaseRunLock(ctx context.Context, cmd redis.Cmdable, userID int64) error {
	return cmd.Del(ctx, dbKeyRunLock(userID)).Err()
}

func CachePlatformStatistics(ctx context.Context, cmd redis.Cmdable, stats *models.PlatformStatistics) error {
	b, err := msgpack.Marshal(stats)
	if err != nil {
		return err
	}
	return cmd.Set(ctx, dbKeyPlatformStats(stats.StatKey), b, PLATFORM_STATS_TTL).Err()
}

func CachedPlatformStatistics(ctx context.Context, cmd redis.Cmdable, statKey string) (*models.PlatformStatistics, error) {
	b, err := cmd.Get(ctx, dbKeyPlatformStats(statKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var stats models.PlatformStatistics
	if err := msgpack.Unmarshal(b, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
