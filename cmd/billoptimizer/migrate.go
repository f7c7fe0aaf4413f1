package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bher20/billoptimizer/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		if cfg.DB.Driver == "memory" {
			return fmt.Errorf("migrate: the memory driver has no schema")
		}
		migrate.SetLogger(logger)
		return nil
	},
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := migrate.Up(cmd.Context(), cfg.DB.Driver, cfg.DB.DSN); err != nil {
			return err
		}
		v, err := migrate.Version(cmd.Context(), cfg.DB.Driver, cfg.DB.DSN)
		if err != nil {
			return err
		}
		logger.Info("migrate: schema up to date", zap.Int64("version", v))
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return migrate.Down(cmd.Context(), cfg.DB.Driver, cfg.DB.DSN)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return migrate.Status(cmd.Context(), cfg.DB.Driver, cfg.DB.DSN)
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}
