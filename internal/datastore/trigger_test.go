package datastore

import (
	"context"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"githarvest/internal/models"
)

func newMockDB(t *testing.T) (*bun.DB, sqlmock.Sqlmock) {
	matchAny := sqlmock.QueryMatcherFunc(func(expected, actual string) error { return nil })
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(matchAny))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return bun.NewDB(mockDB, pgdialect.New()), mock
}

var triggerColumns = []string{"id", "user_id", "status", "priority", "scheduled_at", "processed_at", "created_at"}

// The conditional UPDATE hands the row to exactly one caller; everyone else
// sees zero rows affected and must back off.
func TestClaimDueTrigger_SingleWinnerUnderContention(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	const claimers = 8
	mock.ExpectQuery("UPDATE").WillReturnRows(
		sqlmock.NewRows(triggerColumns).
			AddRow(int64(1), int64(42), string(models.TriggerProcessing), int64(models.PriorityLow), now, now, now),
	)
	for i := 1; i < claimers; i++ {
		mock.ExpectQuery("UPDATE").WillReturnRows(sqlmock.NewRows(triggerColumns))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	errs := make([]error, 0, claimers)

	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			trigger, err := ClaimDueTrigger(context.Background(), db, now)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if trigger != nil {
				winners++
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Equal(t, 1, winners)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimDueTrigger_NothingDue(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("UPDATE").WillReturnRows(sqlmock.NewRows(triggerColumns))

	trigger, err := ClaimDueTrigger(context.Background(), db, time.Now())
	require.NoError(t, err)
	assert.Nil(t, trigger)
}

func TestClaimDueTrigger_ReturnsClaimedRow(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery("UPDATE").WillReturnRows(
		sqlmock.NewRows(triggerColumns).
			AddRow(int64(7), int64(42), string(models.TriggerProcessing), int64(models.PriorityHigh), now, now, now),
	)

	trigger, err := ClaimDueTrigger(context.Background(), db, now)
	require.NoError(t, err)
	require.NotNil(t, trigger)
	assert.Equal(t, int64(7), trigger.ID)
	assert.Equal(t, int64(42), trigger.UserID)
	assert.Equal(t, models.TriggerProcessing, trigger.Status)
}
