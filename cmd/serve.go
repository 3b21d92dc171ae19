package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/coverage-cli/internal/analysis"
	"github.com/sells-group/coverage-cli/internal/server"
	"github.com/sells-group/coverage-cli/internal/source"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve analyses over HTTP",
	Long: "Starts an HTTP server exposing GET /v1/indices and GET /v1/analyses/{index}. " +
		"Query parameters override the configured analysis defaults; results are cached by request.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		src, err := source.Open(ctx, cfg.Source)
		if err != nil {
			return err
		}
		defer src.Close() //nolint:errcheck

		srv := server.New(analysis.NewRunner(src), cfg.Analysis, cfg.Server)
		zap.L().Info("serving analyses", zap.String("driver", cfg.Source.Driver))
		return srv.ListenAndServe(ctx, cfg.Server.Port)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
