package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"poholowani/internal/cleanup"
	"poholowani/internal/config"
	"poholowani/internal/db"
	"poholowani/internal/repository/gormrepo"
)

// loadConfig reads .env, then the YAML file at path (if any).
func loadConfig(path string) (*config.Config, error) {
	config.LoadDotEnv()
	return config.Load(path)
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	conn, err := db.Connect(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(conn); err != nil {
		_ = db.Close(conn)
		return nil, err
	}
	return conn, nil
}

func newMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long: `Applies the schema for every model to the configured database.

The driver and DSN come from the config file or from DATABASE_DRIVER and
DATABASE_DSN.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			conn, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close(conn)
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d models on %s\n", len(db.AllModels()), cfg.Database.Driver)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	return cmd
}

func newCleanupCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete route offers dated before yesterday",
		Long: `Runs one cleanup pass: route offers whose travel date is before
yesterday (local time) are deleted, along with expired sign-in sessions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			conn, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close(conn)

			report, err := runCleanup(cmd.Context(), conn)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d routes dated before %s and %d expired sessions\n",
				report.Routes, report.Cutoff, report.Sessions)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	return cmd
}

func runCleanup(ctx context.Context, conn *gorm.DB) (cleanup.Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()
	repos := gormrepo.New(conn)
	job := &cleanup.Job{Routes: repos.Routes, Sessions: repos.Sessions}
	return job.Run(ctx)
}
