package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"platepulse/internal/app"
)

func newServeCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web dashboard until interrupted",
		Long: `Starts the HTTP server. Configuration comes from config.yaml (or --config),
a .env file and PLATEPULSE_* environment variables, in that order.
SIGINT or SIGTERM triggers a graceful shutdown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := app.NewApplication(configFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return application.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "path to config.yaml")
	return cmd
}
