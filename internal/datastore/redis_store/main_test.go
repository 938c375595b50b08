package redis_store

import (
	"testing"
	"time"

	"githarvest/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueMember_Roundtrip(t *testing.T) {
	entry := models.JobQueueEntry{
		UserID:    42,
		RunID:     "0f4f9edb-9b5e-4de1-8b3a-4f1f0c4318aa",
		TriggerID: 7,
	}

	parsed, err := parseQueueMember(queueMember(entry))
	require.NoError(t, err)
	assert.Equal(t, entry, parsed)
}

func TestQueueMember_ZeroTrigger(t *testing.T) {
	entry := models.JobQueueEntry{UserID: 1, RunID: "run"}

	parsed, err := parseQueueMember(queueMember(entry))
	require.NoError(t, err)
	assert.Equal(t, int64(0), parsed.TriggerID)
}

func TestParseQueueMember_Malformed(t *testing.T) {
	for _, member := range []string{"", "1", "1:run", "x:run:2", "1:run:y", "1:run:2:3"} {
		_, err := parseQueueMember(member)
		assert.Error(t, err, member)
	}
}

func TestQueueScore_PriorityBreaksTies(t *testing.T) {
	at := time.Unix(1700000000, 0)

	high := queueScore(models.PriorityHigh, at)
	low := queueScore(models.PriorityLow, at)

	assert.Less(t, high, low)
	// the offset must never push an entry into the next second
	assert.Less(t, low, float64(at.Unix()+1))
}

func TestQueueScore_EarlierTimeWins(t *testing.T) {
	earlierLow := queueScore(models.PriorityLow, time.Unix(1700000000, 0))
	laterHigh := queueScore(models.PriorityHigh, time.Unix(1700000001, 0))

	assert.Less(t, earlierLow, laterHigh)
}
