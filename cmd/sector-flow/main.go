package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"sector-flow/internal/app"
	"sector-flow/internal/runlock"
	"sector-flow/internal/slogx"
	"sector-flow/internal/update"
)

func init() {
	slog.SetDefault(slogx.NewDefault("info", "text"))
}

func main() {
	cmd := &cli.Command{
		Name:  "sector-flow",
		Usage: "Compute CMF and relative-strength quadrants for sector ETFs",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "data-dir", Usage: "bar store, history and snapshot directory", Sources: cli.EnvVars("DATA_DIR")},
			&cli.StringFlag{Name: "snapshot", Usage: "snapshot file (default {data-dir}/dashboard_data.json)", Sources: cli.EnvVars("SNAPSHOT_FILE")},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug | info | warn | error", Sources: cli.EnvVars("LOG_LEVEL")},
			&cli.StringFlag{Name: "log-format", Value: "text", Usage: "text | json", Sources: cli.EnvVars("LOG_FORMAT")},
		},
		DefaultCommand: "update",
		Commands: []*cli.Command{
			{
				Name:  "update",
				Usage: "Fetch new sessions, recompute indicators and replace the snapshot",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "provider", Usage: "yahoo | polygon", Sources: cli.EnvVars("DATA_PROVIDER")},
					&cli.StringFlag{Name: "universe", Usage: "universe file (.yaml, .txt, .json)", Sources: cli.EnvVars("UNIVERSE_FILE")},
					&cli.StringFlag{Name: "benchmark", Usage: "benchmark symbol override", Sources: cli.EnvVars("BENCHMARK")},
					&cli.StringFlag{Name: "metrics-file", Usage: "node-exporter textfile for run metrics", Sources: cli.EnvVars("METRICS_FILE")},
					&cli.BoolFlag{Name: "rebuild", Usage: "drop indicator history and recompute it from stored bars"},
				},
				Action: runUpdate,
			},
			{
				Name:   "status",
				Usage:  "Print the current snapshot",
				Action: runStatus,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("sector-flow failed", "error", err)
		stop()
		if errors.Is(err, runlock.ErrRunInProgress) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies command-line overrides.
func loadConfig(cmd *cli.Command) (*app.Config, error) {
	cfg := app.LoadConfig()
	overrides := map[string]*string{
		"data-dir":     &cfg.DataDir,
		"snapshot":     &cfg.SnapshotFile,
		"log-level":    &cfg.LogLevel,
		"log-format":   &cfg.LogFormat,
		"provider":     &cfg.DataProvider,
		"universe":     &cfg.UniverseFile,
		"benchmark":    &cfg.Benchmark,
		"metrics-file": &cfg.MetricsFile,
	}
	for name, dst := range overrides {
		if cmd.IsSet(name) {
			*dst = cmd.String(name)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runUpdate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	logger := slogx.NewDefault(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger.With("run_id", runID))

	a, cleanup, err := InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer cleanup()

	u := a.Updater
	u.Logger = logger
	u.RunID = runID
	slog.Info("using data provider", "provider", u.Market.GetName(), "data_dir", cfg.DataDir, "format", cfg.SaveFormat, "workers", cfg.Workers)

	res, err := app.RunUpdate(ctx, cfg, u, update.Options{Rebuild: cmd.Bool("rebuild")})
	if err != nil {
		return err
	}
	if len(res.Failed) > 0 {
		slog.Warn("snapshot is degraded", "missing", res.Failed)
	}
	return nil
}

func runStatus(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return app.PrintStatus(os.Stdout, cfg.SnapshotFile)
}
