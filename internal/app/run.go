package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"sector-flow/internal/runlock"
	"sector-flow/internal/update"
)

// RunUpdate holds the run lock for the duration of one update, then dumps run metrics.
// A second process gets runlock.ErrRunInProgress without touching any store.
func RunUpdate(ctx context.Context, cfg *Config, u *update.Updater, opts update.Options) (*update.Result, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	lock, err := runlock.Acquire(cfg.LockPath())
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			slog.Warn("release run lock", "error", err)
		}
	}()

	res, runErr := u.Run(ctx, opts)
	if u.Metrics != nil {
		if err := u.Metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			slog.Warn("could not write metrics", "path", cfg.MetricsFile, "error", err)
		}
	}
	return res, runErr
}
