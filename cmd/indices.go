package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/coverage-cli/internal/coverage"
	"github.com/sells-group/coverage-cli/internal/render"
)

var indicesCmd = &cobra.Command{
	Use:   "indices",
	Short: "List the available indices",
	RunE: func(cmd *cobra.Command, args []string) error {
		formatIndices(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indicesCmd)
}

// formatIndices writes the index registry as a table.
func formatIndices(out io.Writer) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SLUG\tTITLE\tSCORES\tFORMULA\tHIGH MEANS\tALIASES")
	_, _ = fmt.Fprintln(w, "----\t-----\t------\t-------\t----------\t-------")
	for _, k := range coverage.Kinds() {
		d := k.Definition()
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Slug, render.Title(k), d.Subject, d.Formula(), d.HighMeans, strings.Join(d.Aliases(), ", "))
	}
	_ = w.Flush()
}
