package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/appforge/internal/api/auth"
	"github.com/appforge/internal/config"
)

// ConfigCommand returns the CLI command for configuration management.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage Appforge configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Create a sample configuration file",
				Action: func(c *cli.Context) error {
					path := c.String("config")
					if err := config.InitConfig(path); err != nil {
						return err
					}
					fmt.Printf("Configuration file created at %s\n", path)
					return nil
				},
			},
			{
				Name:  "validate",
				Usage: "Validate the configuration file",
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					fmt.Printf("Configuration is valid (provider: %s, port: %d)\n",
						cfg.AI.Provider, cfg.Server.Port)
					return nil
				},
			},
			{
				Name:      "token",
				Usage:     "Mint an API bearer token for the configured JWT secret",
				ArgsUsage: "<subject>",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "ttl",
						Usage: "Token lifetime",
						Value: 30 * 24 * time.Hour,
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					if cfg.Server.JWTSecret == "" {
						return fmt.Errorf("server.jwt_secret is not configured")
					}
					subject := c.Args().First()
					if subject == "" {
						return fmt.Errorf("a token subject is required")
					}
					token, err := auth.GenerateToken(cfg.Server.JWTSecret, subject, c.Duration("ttl"))
					if err != nil {
						return err
					}
					fmt.Println(token)
					return nil
				},
			},
		},
	}
}
