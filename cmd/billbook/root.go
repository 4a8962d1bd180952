package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/DodailSolutions/billbook/internal"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "billbook",
		Short: "BillBook invoicing service",
		Long: `BillBook is a multi-tenant invoicing service: customers, invoices,
payments and refunds, recurring billing and reminders.

Configuration is read from the environment and an optional .env file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newWorkerCmd(),
		newTokenCmd(),
	)
	return root
}

// bootstrap loads configuration and builds the logger for a subcommand.
func bootstrap(component string) (*internal.Config, *slog.Logger, error) {
	cfg, err := internal.NewConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("config initialization failed: %w", err)
	}

	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel, component)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
