// Command platepulse runs the Plate Pulse restaurant dashboard and offers
// offline helpers for normalizing and inspecting restaurant listing files.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"platepulse/internal/config"
	"platepulse/internal/infrastructure"
)

var verbose bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "platepulse",
		Short: fmt.Sprintf("%s - restaurant listings dashboard (v%s)", config.AppName, config.AppVersion),
		Long: `Plate Pulse serves a login-gated dashboard over an uploaded restaurant
listings file: a preview table, the rating distribution, online ordering
share, cost against rating and the most common restaurant types.

Run "platepulse serve" to start the web application.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				infrastructure.SetLevel("debug")
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newServeCmd(), newNormalizeCmd(), newInspectCmd())
	return root
}

// cliLogger writes human-readable logs to the command's error stream.
func cliLogger(cmd *cobra.Command) *slog.Logger {
	return infrastructure.NewLoggerWithWriter(cmd.ErrOrStderr(), "text", false)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
