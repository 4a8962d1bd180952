package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/DodailSolutions/billbook/internal/worker"
)

func newWorkerCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the recurring invoice and reminder sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap("worker")
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			w := worker.NewWorker(a.recurring, a.reminders, worker.Config{
				PollInterval: cfg.Worker.PollInterval,
				BatchSize:    cfg.Worker.BatchSize,
			}, logger)

			if once {
				result := w.RunOnce(ctx)
				logger.Info("sweep finished",
					"generated", result.Recurring.Generated,
					"generate_failed", result.Recurring.Failed,
					"reminders_created", result.Reminders.Created,
					"reminders_sent", result.Reminders.Sent,
					"reminders_failed", result.Reminders.Failed,
				)
				return nil
			}

			if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run a single sweep and exit")
	return cmd
}
