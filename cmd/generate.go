package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/appforge/internal/progress"
)

// GenerateCommand returns the CLI command for a one-shot generation, useful
// for trying a prompt without running the server.
func GenerateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "Generate an app from a prompt and print the result",
		ArgsUsage: "\"<prompt>\"",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "model",
				Usage: "Model to use: auto, sonnet, or opus",
				Value: "auto",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress progress output",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Write the generated code to `FILE` instead of including it in the JSON",
			},
		},
		Action: func(c *cli.Context) error {
			prompt := c.Args().First()
			if prompt == "" {
				return fmt.Errorf("a prompt is required: appforge generate \"Build a meal planner\"")
			}

			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			ctx := context.Background()
			orch, ledger, err := buildOrchestrator(ctx, cfg, nil, nil)
			if err != nil {
				return err
			}

			var sink progress.Sink
			if !c.Bool("quiet") {
				sink = func(ev progress.Event) {
					fmt.Fprintf(os.Stderr, "[%s] %s\n", ev.Type, ev.Message)
				}
			}

			result, err := orch.GenerateFromPrompt(ctx, prompt, c.String("model"), sink)
			if err != nil {
				return err
			}

			if outPath := c.String("out"); outPath != "" && result.GeneratedCode != "" {
				if err := os.WriteFile(outPath, []byte(result.GeneratedCode), 0644); err != nil {
					return fmt.Errorf("writing generated code: %w", err)
				}
				fmt.Fprintf(os.Stderr, "Generated code written to %s\n", outPath)
				result.GeneratedCode = ""
			}

			encoded, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(encoded))
			fmt.Fprintf(os.Stderr, "Spend today: $%.4f of $%.2f\n", ledger.DailySpend(), ledger.DailyCap())
			return nil
		},
	}
}
