package datastore

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigFloat_FallbackOnQueryError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection refused"))

	v, err := GetConfigFloat(context.Background(), db, "SCORE_WEIGHT_COMMIT", 1.5)
	assert.Error(t, err)
	assert.Equal(t, 1.5, v)
}

func TestGetConfigFloat_FallbackOnMissingKey(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"key", "value"}))

	v, err := GetConfigFloat(context.Background(), db, "SCORE_WEIGHT_COMMIT", 1.5)
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)
}

func TestGetConfigFloat_FallbackOnMalformedValue(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"key", "value"}).AddRow("SCORE_WEIGHT_COMMIT", "not-a-number"),
	)

	v, err := GetConfigFloat(context.Background(), db, "SCORE_WEIGHT_COMMIT", 1.5)
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)
}

func TestGetConfigFloat_ParsesStoredValue(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"key", "value"}).AddRow("SCORE_WEIGHT_COMMIT", "2.5"),
	)

	v, err := GetConfigFloat(context.Background(), db, "SCORE_WEIGHT_COMMIT", 1.5)
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)
}
