package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/coverage-cli/internal/analysis"
	"github.com/sells-group/coverage-cli/internal/source"
)

var gridLimit int

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Show the sampling grid for a region",
	Long:  "Generates the grid cell centers strictly inside the region (or bounding box) and prints the count and the first cells.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyAnalysisFlags(cmd, &cfg.Analysis)
		if err := cfg.Validate("grid"); err != nil {
			return err
		}
		req, err := analysis.RequestFromConfig(cfg.Analysis)
		if err != nil {
			return err
		}

		src, err := source.Open(ctx, cfg.Source)
		if err != nil {
			return err
		}
		defer src.Close() //nolint:errcheck

		cells, err := analysis.NewRunner(src).Grid(ctx, req)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "Area: %s\n", req.Area())
		_, _ = fmt.Fprintf(out, "Step: %s degrees\n", strconv.FormatFloat(req.StepDegrees, 'f', -1, 64))
		_, _ = fmt.Fprintf(out, "Cells: %d\n", len(cells))

		n := min(gridLimit, len(cells))
		if n <= 0 {
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "\n#\tLON\tLAT")
		for i, c := range cells[:n] {
			_, _ = fmt.Fprintf(w, "%d\t%.4f\t%.4f\n", i, c.Lon, c.Lat)
		}
		return w.Flush()
	},
}

func init() {
	addAnalysisFlags(gridCmd)
	gridCmd.Flags().IntVar(&gridLimit, "limit", 10, "number of cells to list")
	rootCmd.AddCommand(gridCmd)
}
