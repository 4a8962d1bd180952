package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/DodailSolutions/billbook/internal"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, logger, err := bootstrap("migrate")
				if err != nil {
					return err
				}
				return migrateUp(cfg, logger)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, logger, err := bootstrap("migrate")
				if err != nil {
					return err
				}
				return withSQLDB(cfg, logger, internal.RollbackMigration)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the state of every migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, logger, err := bootstrap("migrate")
				if err != nil {
					return err
				}
				return withSQLDB(cfg, logger, internal.MigrationStatus)
			},
		},
	)
	return cmd
}

func migrateUp(cfg *internal.Config, logger *slog.Logger) error {
	logger.Info("Running database migrations...")
	if err := withSQLDB(cfg, logger, internal.RunMigrations); err != nil {
		return err
	}
	logger.Info("Database migrations completed successfully")
	return nil
}

// withSQLDB opens a database/sql handle for goose, which does not use pgxpool.
func withSQLDB(cfg *internal.Config, logger *slog.Logger, fn func(*sql.DB) error) error {
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Debug("Database connection established")

	return fn(sqlDB)
}
