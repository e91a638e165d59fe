// Package cmd implements pilot's cobra CLI: a root command plus a run
// subcommand that wires the full browser-automation core end to end.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kestrel-run/pilot/internal/config"
	"github.com/kestrel-run/pilot/internal/observability"
)

var cfgFile string

// NewRootCommand builds a fresh root command. Called once per process by
// main, and once per line by anything that drives pilot interactively.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "pilot",
		Short:   "pilot drives a browser session from a natural-language task.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "pilot"})
				return fmt.Errorf("load config: %w", err)
			}
			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Info("starting pilot", zap.String("version", Version))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	rootCmd.AddCommand(newRunCmd())
	return rootCmd
}

// Execute runs the root command, propagating ctx for signal-aware
// cancellation.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("command execution failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	return err
}
