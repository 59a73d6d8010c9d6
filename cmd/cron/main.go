package main

import (
	"log"
	"os"

	"sippets/internal/container"
	"sippets/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/samber/do"
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
		Name: "cronjob",
		Commands: []*cli.Command{
			commandCronjob(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandCronjob() *cli.Command {
	return &cli.Command{
		Name: "cron",
		Action: func(c *cli.Context) error {
			vs, err := env.EnvsRequired(
				"BOT_TOKEN",
				"JWT_SECRET",
				"DB_DSN",
				"TON_INDEXER_URL",
			)
			if err != nil {
				return err
			}

			injector := container.New(vs)

			serviceTribeScore, err := do.Invoke[*services.ServiceTribeScore](injector)
			if err != nil {
				return err
			}
			serviceRaid, err := do.Invoke[*services.ServiceRaid](injector)
			if err != nil {
				return err
			}
			serviceConfig, err := do.Invoke[*services.ServiceConfig](injector)
			if err != nil {
				return err
			}

			cronRunner := cron.New()

			jobs := &jobs{serviceTribeScore, serviceRaid, serviceConfig}
			if err := jobs.register(cronRunner); err != nil {
				return err
			}

			log.Println("Start cronjob")
			cronRunner.Run()
			return nil
		},
	}
}
