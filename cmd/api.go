package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/appforge/internal/api"
	"github.com/appforge/internal/database"
	"github.com/appforge/internal/jobqueue"
	"github.com/appforge/internal/pipeline"
	"github.com/appforge/internal/store"
)

// APICommand returns the CLI command for starting the API server.
func APICommand() *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Start the Appforge API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "no-db",
				Usage: "Run without persistence (generated apps are not stored)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			port := cfg.Server.Port
			if c.IsSet("port") {
				port = c.Int("port")
			}

			ctx := context.Background()

			var (
				appStore *store.AppStore
				plStore  pipeline.Store
				queue    pipeline.ArtifactQueue
			)
			if !c.Bool("no-db") {
				db, err := database.NewDB(cfg.Database.URL)
				if err != nil {
					return fmt.Errorf("connecting to database: %w", err)
				}
				if err := database.EnsureSchema(db); err != nil {
					return err
				}
				appStore = store.New(db)
				plStore = appStore

				jq, err := jobqueue.NewJobQueue(cfg.Database.URL, appStore)
				if err != nil {
					return fmt.Errorf("starting job queue: %w", err)
				}
				if err := jq.Start(ctx); err != nil {
					return fmt.Errorf("starting queue workers: %w", err)
				}
				defer func() {
					stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					if err := jq.Stop(stopCtx); err != nil {
						log.Warn().Err(err).Msg("job queue did not stop cleanly")
					}
				}()
				queue = jq
			} else {
				log.Warn().Msg("Running without a database: apps will not be persisted")
			}

			orch, _, err := buildOrchestrator(ctx, cfg, plStore, queue)
			if err != nil {
				return err
			}

			fmt.Printf("Starting Appforge API server on port %d...\n", port)
			server := api.NewServer(api.Options{
				Port:         port,
				Orchestrator: orch,
				Store:        appStore,
				JWTSecret:    cfg.Server.JWTSecret,
				RouteTimeout: time.Duration(cfg.Timeouts.RouteSeconds) * time.Second,
			})
			return server.Start()
		},
	}
}
