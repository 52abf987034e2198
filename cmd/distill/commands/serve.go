package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/distill/internal/logger"
	"github.com/jmylchreest/distill/internal/server"
	"github.com/jmylchreest/distill/internal/version"
	"github.com/jmylchreest/distill/pkg/distill"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the summarize and extract endpoints over HTTP.

Routes (under the API prefix, default /api):
  GET  /           welcome message
  GET  /health     liveness and version
  POST /summarize  summarize a PDF upload, URL or text
  POST /extract    extract key points, entities or custom data

Examples:
  distill serve --addr :9000
  DISTILL_LLM_PROVIDER=openai distill serve --max-upload-size 25MB`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("addr", "", "listen address (default :8000)")
	flags.String("prefix", "", "API path prefix (default /api)")
	flags.String("max-upload-size", "", "largest accepted request body (e.g. 10MB)")
	flags.StringSlice("cors-origin", nil, "allowed CORS origin (can be repeated, default *)")

	_ = viper.BindPFlag("server.addr", flags.Lookup("addr"))
	_ = viper.BindPFlag("server.api_prefix", flags.Lookup("prefix"))
	_ = viper.BindPFlag("server.max_upload_size", flags.Lookup("max-upload-size"))
	_ = viper.BindPFlag("server.cors_origins", flags.Lookup("cors-origin"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}

	dc, err := cfg.DistillConfig()
	if err != nil {
		return err
	}
	d, err := distill.New(distill.WithConfig(dc))
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return err
	}
	defer func() { _ = d.Close() }()

	srv, err := server.New(cfg, d)
	if err != nil {
		return err
	}

	provider, model := d.Provider()
	logger.Info("starting distill",
		"version", version.String(),
		"provider", provider,
		"model", model,
		"fetch_mode", cfg.Fetch.Mode,
		"cleaner", cfg.Fetch.Cleaner)

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("server stopped", "error", err)
		return err
	}
	logger.Info("server stopped")
	return nil
}
