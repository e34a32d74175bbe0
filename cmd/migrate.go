/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/baymax-health/apiserver/config"
	"github.com/baymax-health/apiserver/internal/db"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
)

var migrateSteps int

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations against the postgres backend",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *migrate.Migrate) error {
			if err := m.Up(); err != nil {
				if errors.Is(err, migrate.ErrNoChange) {
					slog.Info("Schema already up to date")
					return nil
				}
				return fmt.Errorf("migrate up failed: %w", err)
			}
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations (one step by default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrateSteps < 1 {
			return fmt.Errorf("--steps must be at least 1")
		}
		return withMigrator(func(m *migrate.Migrate) error {
			if err := m.Steps(-migrateSteps); err != nil {
				if errors.Is(err, migrate.ErrNoChange) {
					return nil
				}
				return fmt.Errorf("migrate down failed: %w", err)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "Number of migrations to roll back")
}

func withMigrator(fn func(*migrate.Migrate) error) error {
	cfg := config.LoadConfig()
	if cfg.StoreBackend != config.BackendPostgres {
		return fmt.Errorf("migrations only apply to the postgres backend, STORE_BACKEND is %q", cfg.StoreBackend)
	}

	migrator, err := migrate.New(db.MigrationsURL, db.URL(cfg.Database))
	if err != nil {
		return fmt.Errorf("init migrator failed: %w", err)
	}
	defer func() {
		_, _ = migrator.Close()
	}()
	return fn(migrator)
}
