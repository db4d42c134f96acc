package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/qepting91/reddit-hot-comments/internal/collector"
	"github.com/qepting91/reddit-hot-comments/internal/config"
	"github.com/qepting91/reddit-hot-comments/internal/pipeline"
	"github.com/qepting91/reddit-hot-comments/internal/storage"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "scraper",
	Short:        "Export a subreddit's hot posts and their comments to CSV",
	SilenceUsage: true,
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app is the wiring shared by run and serve.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	runner  *pipeline.Runner
	history *storage.HistoryStore
}

func newApp() (*app, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	client, err := collector.NewCollector(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize collector: %w", err)
	}
	logger.Info("collector initialized", "mode", cfg.CollectorMode)

	a := &app{cfg: cfg, logger: logger}
	a.runner = pipeline.NewRunner(client, storage.NewCSVWriter(cfg.DataDir, cfg.OutputPrefix), logger)

	if cfg.HistoryDB != "" {
		a.history, err = storage.OpenHistory(cfg.HistoryDB)
		if err != nil {
			return nil, fmt.Errorf("open run history: %w", err)
		}
		a.runner.WithRecorder(a.history)
	}
	return a, nil
}

func (a *app) Close() {
	if a.history != nil {
		a.history.Close()
	}
}
