package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"sippets/internal/datastore"
	"sippets/internal/models"
	"sippets/internal/services"

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
			commandConfigMigration(),
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

			err = datastore.CreateTableConfig(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableUserWallet(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTablePet(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTablePetSkill(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTablePetEvent(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableTokenTransfer(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableBattle(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableBossRaid(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableRaidParticipant(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableWeek(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableTribeScore(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableTribeBadge(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			fmt.Println("Migration success")

			return nil
		},
	}
}

func commandConfigMigration() *cli.Command {
	return &cli.Command{
		Name:        "migrate-config",
		Description: "Insert default configs to db",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			configs := []models.Config{
				{Key: services.CONFIG_SERVER_MODE, Value: "production"},
				{Key: services.CONFIG_MIN_BATTLE_BET, Value: "100"},
				{Key: services.CONFIG_MAX_BATTLE_BET, Value: "100000"},
				{Key: services.CONFIG_RAID_ENTRY_FEE, Value: "500"},
				{Key: services.CONFIG_RAID_BOSS_HP, Value: "1000000"},
				{Key: services.CONFIG_RAID_DURATION_HOURS, Value: "168"},
				{Key: services.CONFIG_ATTACK_COOLDOWN_MINUTES, Value: "60"},
				{Key: services.CONFIG_SKILL_FEED_GATE, Value: "10000"},
				{Key: services.CONFIG_POWER_LEADERBOARD_LIMIT, Value: "20"},
				{Key: services.CONFIG_RAID_LEADERBOARD_LIMIT, Value: "20"},
				{Key: services.CONFIG_SIP_TREASURY_ADDRESS, Value: ""},
				{Key: services.CONFIG_CRONJOB_TIME_TRIBE_SCORE, Value: "*/10 * * * *"},
				{Key: services.CONFIG_CRONJOB_TIME_WEEK_CLOSE, Value: "0 0 * * 1"},
				{Key: services.CONFIG_CRONJOB_TIME_RAID_SPAWN, Value: "10 0 * * 1"},
				{Key: services.CONFIG_TEXT_NEW_USER, Value: `🐾 Welcome to Sippets!

Adopt a pet, pick your tribe and earn $SIP through battles and boss raids.

⚔️ See you in the arena!`},
			}

			for _, config := range configs {
				_, err = db.NewInsert().Model(&config).Exec(ctx)
				if err != nil {
					log.Println(err)
				}
			}

			fmt.Println("Migration success")

			return nil
		},
	}
}

func getDb() (*bun.DB, error) {
	godotenv.Load()
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(os.Getenv("DB_DSN")),
		pgdriver.WithPassword(os.Getenv("DB_PASSWORD")),
	))

	db := bun.NewDB(sqldb, pgdialect.New())
	return db, nil
}
