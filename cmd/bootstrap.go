package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/appforge/internal/budget"
	"github.com/appforge/internal/config"
	"github.com/appforge/internal/llm"
	"github.com/appforge/internal/pipeline"
)

// loadConfig reads and validates the configuration named by the global
// --config flag.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// buildOrchestrator wires the pipeline from configuration. Store and queue
// are attached by callers that have a database.
func buildOrchestrator(ctx context.Context, cfg *config.Config, st pipeline.Store, queue pipeline.ArtifactQueue) (*pipeline.Orchestrator, *budget.Ledger, error) {
	client, err := llm.NewLangchainClient(ctx, llm.Options{
		Provider:  llm.Provider(cfg.AI.Provider),
		APIKey:    cfg.AI.APIKey,
		BaseURL:   cfg.AI.BaseURL,
		Model:     cfg.AI.SonnetModel,
		RateLimit: cfg.AI.RateLimit,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating model client: %w", err)
	}

	ledger := budget.NewLedger(cfg.Budget.DailyCapUSD)

	orch := pipeline.New(pipeline.Options{
		Client:          client,
		Ledger:          ledger,
		Store:           st,
		Queue:           queue,
		SonnetModel:     cfg.AI.SonnetModel,
		OpusModel:       cfg.AI.OpusModel,
		ClarifyTimeout:  time.Duration(cfg.Timeouts.ClarifySeconds) * time.Second,
		ResearchTimeout: time.Duration(cfg.Timeouts.ResearchSeconds) * time.Second,
		ReasonTimeout:   time.Duration(cfg.Timeouts.ReasonSeconds) * time.Second,
		CodegenTimeout:  time.Duration(cfg.Timeouts.CodegenSeconds) * time.Second,
	})

	log.Debug().
		Str("provider", cfg.AI.Provider).
		Float64("daily_cap_usd", ledger.DailyCap()).
		Msg("Pipeline wired")

	return orch, ledger, nil
}
