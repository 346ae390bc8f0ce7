package app

import (
	"fmt"
	"log/slog"
	"time"

	"sector-flow/internal/barstore"
	"sector-flow/internal/history"
	"sector-flow/internal/indicator"
	"sector-flow/internal/macro"
	"sector-flow/internal/metrics"
	"sector-flow/internal/provider"
	"sector-flow/internal/provider/polygon"
	"sector-flow/internal/provider/yahoo"
	"sector-flow/internal/saver"
	"sector-flow/internal/session"
	"sector-flow/internal/slogx"
	"sector-flow/internal/snapshot"
	"sector-flow/internal/universe"
	"sector-flow/internal/update"
)

// ProvideBarCodec creates the BarCodec from config (for Wire).
// Returns error if SaveFormat is not supported.
func ProvideBarCodec(cfg *Config) (saver.BarCodec, error) {
	c := saver.NewBarCodec(cfg.SaveFormat)
	if c == nil {
		return nil, fmt.Errorf("unsupported SAVE_FORMAT %q (use: csv, parquet, json)", cfg.SaveFormat)
	}
	return c, nil
}

// ProvideBarStore opens data/bars with the configured codec (for Wire).
func ProvideBarStore(cfg *Config, codec saver.BarCodec) (*barstore.Store, error) {
	return barstore.New(cfg.BarsDir(), codec)
}

// ProvideHistory opens the indicator history database (for Wire).
func ProvideHistory(cfg *Config) (*history.Store, func(), error) {
	h, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return nil, nil, err
	}
	return h, func() {
		if err := h.Close(); err != nil {
			slog.Warn("close history", "error", err)
		}
	}, nil
}

// ProvideMarketData creates the configured provider wrapped with retries (for Wire).
// Caller must run the cleanup when shutting down.
func ProvideMarketData(cfg *Config) (provider.MarketData, func(), error) {
	md, err := createMarketData(cfg)
	if err != nil {
		return nil, nil, err
	}
	policy := provider.DefaultRetryPolicy()
	policy.Timeout = cfg.FetchTimeout
	policy.MaxRetries = uint64(cfg.FetchRetries)
	r := provider.WithRetry(md, policy)
	return r, func() { md.Close() }, nil
}

func createMarketData(cfg *Config) (provider.MarketData, error) {
	switch cfg.DataProvider {
	case "yahoo":
		return yahoo.New(), nil
	case "polygon":
		if len(cfg.PolygonAPIKeys) == 0 {
			return nil, fmt.Errorf("POLYGON_API_KEY or POLYGON_API_KEYS not set")
		}
		return polygon.NewCrawler(cfg.PolygonAPIKeys, polygon.KeyCooldownSec*time.Second, cfg.PolygonBaseURL)
	default:
		return nil, fmt.Errorf("unsupported data provider: %s. Options: yahoo, polygon", cfg.DataProvider)
	}
}

// ProvideMacroSource returns the FRED client, or nil when no API key is configured.
func ProvideMacroSource(cfg *Config) macro.Source {
	if cfg.FREDAPIKey == "" {
		return nil
	}
	return macro.NewFRED(cfg.FREDAPIKey, cfg.FREDBaseURL, cfg.FetchTimeout)
}

// ProvideUniverse loads the universe file and applies the benchmark override (for Wire).
func ProvideUniverse(cfg *Config) (*universe.Universe, error) {
	u, err := universe.Load(cfg.UniverseFile)
	if err != nil {
		return nil, err
	}
	if cfg.Benchmark != "" && cfg.Benchmark != u.Benchmark {
		u.Benchmark = cfg.Benchmark
		if err := u.Validate(); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// ProvideFilter creates the NYSE closed-session filter (for Wire).
func ProvideFilter(cfg *Config) (*session.Filter, error) {
	cal, err := session.NewNYSE()
	if err != nil {
		return nil, err
	}
	return session.NewFilter(cal, cfg.SettleDelay), nil
}

// ProvideMacroCollector fans out over the universe's macro series (for Wire).
func ProvideMacroCollector(cfg *Config, u *universe.Universe, src macro.Source) *macro.Collector {
	return &macro.Collector{
		Source:      src,
		Series:      u.Macro,
		Limit:       cfg.MacroObservations,
		Parallelism: 4,
		Timeout:     cfg.FetchTimeout,
	}
}

// ProvideSnapshotWriter targets the configured snapshot file (for Wire).
func ProvideSnapshotWriter(cfg *Config) *snapshot.Writer {
	return snapshot.NewWriter(cfg.SnapshotFile)
}

// ProvideEngine returns the default indicator engine (for Wire).
func ProvideEngine() *indicator.Engine {
	return indicator.NewEngine()
}

// ProvideMetrics creates the run metrics registry (for Wire).
func ProvideMetrics() *metrics.Metrics {
	return metrics.New()
}

// ProvideUpdater assembles the update pipeline (for Wire).
func ProvideUpdater(
	cfg *Config,
	u *universe.Universe,
	md provider.MarketData,
	bars *barstore.Store,
	hist *history.Store,
	filter *session.Filter,
	engine *indicator.Engine,
	collector *macro.Collector,
	writer *snapshot.Writer,
	m *metrics.Metrics,
) *update.Updater {
	return &update.Updater{
		Universe:          u,
		Market:            md,
		Bars:              bars,
		History:           hist,
		Filter:            filter,
		Engine:            engine,
		Macro:             collector,
		Snapshots:         writer,
		Metrics:           m,
		Workers:           cfg.Workers,
		LookbackDays:      cfg.HistoryLookbackDays,
		StatePath:         cfg.StatePath(),
		ReportDir:         cfg.DataDir,
		LogLevel:          slogx.ParseLevel(cfg.LogLevel),
		LogFormat:         cfg.LogFormat,
		HeartbeatInterval: 30 * time.Second,
	}
}
