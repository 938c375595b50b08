package datastore

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"githarvest/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableConfig(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Config)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

func GetConfigByKey(ctx context.Context, db bun.IDB, key string) (*models.Config, error) {
	var config models.Config
	err := db.NewSelect().Model(&config).Where("key = ?", key).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// GetConfigFloat reads a numeric config value, falling back when the key is
// absent or malformed.
func GetConfigFloat(ctx context.Context, db bun.IDB, key string, fallback float64) (float64, error) {
	config, err := GetConfigByKey(ctx, db, key)
	if err != nil {
		return fallback, err
	}
	if config == nil || config.Value == "" {
		return fallback, nil
	}

	v, err := strconv.ParseFloat(config.Value, 64)
	if err != nil {
		return fallback, nil
	}
	return v, nil
}

func SetConfig(ctx context.Context, db bun.IDB, config *models.Config) error {
	_, err := db.NewInsert().
		Model(config).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	return err
}
