package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/coverage-cli/internal/config"
	"github.com/sells-group/coverage-cli/internal/coverage"
)

var (
	cfg      *config.Config
	envFiles []string
)

var rootCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Spatial coverage and accessibility analysis",
	Long: "Samples a region on a regular grid, counts demand and infrastructure points around each cell, " +
		"and ranks cells or infrastructure points by one of ten coverage indices.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFiles(envFiles...); err != nil {
			return err
		}

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load before config (default .env)")
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, coverage.ErrInvalidParameter):
		return 2
	case errors.Is(err, coverage.ErrNotFound):
		return 3
	case errors.Is(err, coverage.ErrNoInfrastructure):
		return 4
	default:
		return 1
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}
