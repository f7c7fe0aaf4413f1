package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bher20/billoptimizer/internal/config"
	"github.com/bher20/billoptimizer/internal/logging"
	"github.com/bher20/billoptimizer/internal/tariff"
)

var (
	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "billoptimizer",
	Short: "Tiered electricity bill calculator and usage planner",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(serveCmd, billCmd, tariffsCmd, importCmd, migrateCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// seedTable returns the configured tariff file, or the built-in table.
func seedTable() (tariff.Table, error) {
	if cfg.TariffFile == "" {
		return tariff.DefaultTable(), nil
	}
	t, err := tariff.LoadTableFile(cfg.TariffFile)
	if err != nil {
		return nil, fmt.Errorf("load tariff file: %w", err)
	}
	logger.Info("tariff: loaded table from file", zap.String("path", cfg.TariffFile))
	return t, nil
}
