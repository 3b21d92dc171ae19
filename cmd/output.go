package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/coverage-cli/internal/analysis"
	"github.com/sells-group/coverage-cli/internal/coverage"
	"github.com/sells-group/coverage-cli/internal/render"
)

// resolveFormat picks the --format value, else the --output extension, else
// the table.
func resolveFormat(format, output string) (render.Format, error) {
	if format != "" {
		return render.ParseFormat(format)
	}
	if f, ok := render.FormatForPath(output); ok {
		return f, nil
	}
	return render.FormatTable, nil
}

// writeResult renders res to output, or to the command's stdout when output
// is empty. Binary formats need an output file.
func writeResult(cmd *cobra.Command, res *analysis.Result, format, output string) (err error) {
	f, err := resolveFormat(format, output)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if output == "" {
		if f.Binary() {
			return eris.Wrapf(coverage.ErrInvalidParameter, "%s output needs --output", f)
		}
		return render.Write(w, res, f)
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "create %s", dir)
		}
	}
	file, err := os.Create(output)
	if err != nil {
		return eris.Wrapf(err, "create %s", output)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = eris.Wrapf(cerr, "close %s", output)
		}
	}()
	return render.Write(file, res, f)
}
