package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"githarvest/internal/datastore"
	"githarvest/internal/models"
	"githarvest/internal/services"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/urfave/cli/v2"
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
	app := &cli.App{
		Name: "migrate",
		Commands: []*cli.Command{
			commandMigration(),
			commandSeedConfig(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandMigration() *cli.Command {
	return &cli.Command{
		Name: "migrate",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableUser(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableCollectionTrigger(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableStatistics(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableOutbox(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableProcessedMessage(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableChallenge(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTablePointTransaction(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableNotification(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableConfig(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			log.Println("migration complete")
			return nil
		},
	}
}

func commandSeedConfig() *cli.Command {
	return &cli.Command{
		Name: "seed-config",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			defaults := map[string]string{
				services.CONFIG_WEIGHT_COMMIT:          "1",
				services.CONFIG_WEIGHT_STAR:            "2",
				services.CONFIG_WEIGHT_PR:              "3",
				services.CONFIG_WEIGHT_ISSUE:           "1.5",
				services.CONFIG_CRONJOB_TIME_AGGREGATE: "@hourly",
			}

			for key, value := range defaults {
				existing, err := datastore.GetConfigByKey(ctx, db, key)
				if err != nil {
					log.Fatal(err)
				}
				if existing != nil {
					continue
				}
				err = datastore.SetConfig(ctx, db, &models.Config{Key: key, Value: value})
				if err != nil {
					log.Fatal(err)
				}
				log.Println("seeded config", key, "=", value)
			}
			return nil
		},
	}
}

func getDb() (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(os.Getenv("DB_DSN")),
		pgdriver.WithPassword(os.Getenv("DB_PASSWORD")),
	))

	db := bun.NewDB(sqldb, pgdialect.New())
	return db, nil
}
