package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/appforge/cmd"
)

const (
	version = "0.1.0"
)

func main() {
	app := &cli.App{
		Name:    "appforge",
		Usage:   "AI-powered app builder: turn a plain-English prompt into a runnable mini web app",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				Value:   "appforge.toml",
			},
		},
		Commands: []*cli.Command{
			cmd.APICommand(),
			cmd.GenerateCommand(),
			cmd.ConfigCommand(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
