package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/coverage-cli/internal/analysis"
	"github.com/sells-group/coverage-cli/internal/plan"
	"github.com/sells-group/coverage-cli/internal/source"
)

var (
	planOutputDir   string
	planConcurrency int
)

var planCmd = &cobra.Command{
	Use:   "plan <file.yaml>",
	Short: "Run every analysis in a YAML plan",
	Long: "Runs the analyses listed in a plan file, each layered over the configured analysis defaults, " +
		"and writes one output file per analysis.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("plan"); err != nil {
			return err
		}
		p, err := plan.LoadFile(args[0], cfg.Analysis)
		if err != nil {
			return err
		}
		if planOutputDir != "" {
			p.OutputDir = planOutputDir
		}
		if planConcurrency > 0 {
			p.Concurrency = planConcurrency
		}

		log := zap.L().With(zap.String("command", "plan"), zap.String("file", args[0]))
		log.Info("plan loaded", zap.Int("analyses", len(p.Entries)))

		src, err := source.Open(ctx, cfg.Source)
		if err != nil {
			return err
		}
		defer src.Close() //nolint:errcheck

		outcomes, runErr := plan.Execute(ctx, p, analysis.NewRunner(src))

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "NAME\tSTATUS\tRECORDS\tOUTPUT")
		_, _ = fmt.Fprintln(w, "----\t------\t-------\t------")
		for _, o := range outcomes {
			status := "ok"
			if o.Err != nil {
				status = "failed"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", o.Name, status, o.Records, o.Path)
		}
		_ = w.Flush()

		return runErr
	},
}

func init() {
	planCmd.Flags().StringVar(&planOutputDir, "output-dir", "", "override the plan's output_dir")
	planCmd.Flags().IntVar(&planConcurrency, "concurrency", 0, "override the plan's concurrency")
	rootCmd.AddCommand(planCmd)
}
