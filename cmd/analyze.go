package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/coverage-cli/internal/analysis"
	"github.com/sells-group/coverage-cli/internal/source"
)

var (
	analyzeFormat string
	analyzeOutput string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one coverage analysis",
	Long: "Builds the grid for a region or bounding box, scores every cell (or infrastructure point) " +
		"with the selected index, and prints the ranking.",
	Example: `  coverage analyze --index tcvi --region "Tamil Nadu" --radius-km 5
  coverage analyze --index black_spot --bbox 76.9,10.9,77.1,11.1 --format geojson -o out/black_spots.geojson`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyAnalysisFlags(cmd, &cfg.Analysis)
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}
		req, err := analysis.RequestFromConfig(cfg.Analysis)
		if err != nil {
			return err
		}

		log := zap.L().With(zap.String("command", "analyze"))

		src, err := source.Open(ctx, cfg.Source)
		if err != nil {
			return err
		}
		defer src.Close() //nolint:errcheck

		res, err := analysis.NewRunner(src).Run(ctx, req)
		if err != nil {
			return err
		}

		if err := writeResult(cmd, res, analyzeFormat, analyzeOutput); err != nil {
			return err
		}
		if analyzeOutput != "" {
			log.Info("result written",
				zap.String("path", analyzeOutput),
				zap.Int("records", len(res.Ranking.Records)),
			)
		}
		return nil
	},
}

func init() {
	addAnalysisFlags(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "", "output format: table, csv, json, geojson, xlsx, html")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(analyzeCmd)
}
