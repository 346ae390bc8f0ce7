package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sector-flow/internal/macro"
	"sector-flow/internal/model"
	"sector-flow/internal/provider"
	"sector-flow/internal/quadrant"
	"sector-flow/internal/runlock"
	"sector-flow/internal/snapshot"
	"sector-flow/internal/update"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"DATA_DIR", "DATA_PROVIDER", "POLYGON_API_KEYS", "POLYGON_API_KEY", "FRED_API_KEY",
		"UNIVERSE_FILE", "BENCHMARK", "SAVE_FORMAT", "PROFILE", "SNAPSHOT_FILE", "LOG_FORMAT",
		"WORKERS", "FETCH_TIMEOUT", "FETCH_RETRIES", "HISTORY_LOOKBACK_DAYS",
		"SESSION_SETTLE_MINUTES", "MACRO_OBSERVATIONS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	cfg := LoadConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "yahoo", cfg.DataProvider)
	assert.Equal(t, "parquet", cfg.SaveFormat)
	assert.Equal(t, 20*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 30*time.Minute, cfg.SettleDelay)
	assert.Equal(t, filepath.Join("data", "dashboard_data.json"), cfg.SnapshotFile)
	assert.Equal(t, filepath.Join("data", ".update.lock"), cfg.LockPath())
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_PROVIDER", "Polygon")
	t.Setenv("POLYGON_API_KEYS", " k1 , k2,,")
	t.Setenv("PROFILE", "dev")
	t.Setenv("FETCH_TIMEOUT", "45")
	t.Setenv("SESSION_SETTLE_MINUTES", "0")
	t.Setenv("BENCHMARK", "qqq")

	cfg := LoadConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "polygon", cfg.DataProvider)
	assert.Equal(t, []string{"k1", "k2"}, cfg.PolygonAPIKeys)
	assert.Equal(t, "csv", cfg.SaveFormat)
	assert.Equal(t, 45*time.Second, cfg.FetchTimeout)
	assert.Equal(t, time.Duration(0), cfg.SettleDelay)
	assert.Equal(t, "QQQ", cfg.Benchmark)
}

func TestConfigValidate(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_PROVIDER", "polygon")
	assert.Error(t, LoadConfig().Validate(), "polygon without keys")

	clearEnv(t)
	t.Setenv("SAVE_FORMAT", "xlsx")
	assert.Error(t, LoadConfig().Validate())

	clearEnv(t)
	t.Setenv("WORKERS", "0")
	assert.Error(t, LoadConfig().Validate())
}

func TestProvidersFromConfig(t *testing.T) {
	clearEnv(t)
	cfg := LoadConfig()
	cfg.DataDir = t.TempDir()
	require.NoError(t, cfg.Validate())

	assert.Nil(t, ProvideMacroSource(cfg))
	cfg.FREDAPIKey = "k"
	assert.NotNil(t, ProvideMacroSource(cfg))

	md, cleanup, err := ProvideMarketData(cfg)
	require.NoError(t, err)
	defer cleanup()
	_, ok := md.(*provider.Retrying)
	assert.True(t, ok)
	assert.Equal(t, "Yahoo", md.GetName())

	cfg.DataProvider = "bogus"
	_, _, err = ProvideMarketData(cfg)
	assert.Error(t, err)

	cfg.Benchmark = "QQQ"
	u, err := ProvideUniverse(cfg)
	require.NoError(t, err)
	assert.Equal(t, "QQQ", u.Benchmark)

	cfg.Benchmark = "XLK"
	_, err = ProvideUniverse(cfg)
	assert.Error(t, err, "benchmark may not also be an instrument")
}

func TestRunUpdateRejectsConcurrentRun(t *testing.T) {
	clearEnv(t)
	cfg := LoadConfig()
	cfg.DataDir = t.TempDir()

	held, err := runlock.Acquire(cfg.LockPath())
	require.NoError(t, err)
	defer held.Release()

	_, err = RunUpdate(context.Background(), cfg, &update.Updater{}, update.Options{})
	assert.ErrorIs(t, err, runlock.ErrRunInProgress)
}

func TestPrintStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard_data.json")
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	entries := []snapshot.Entry{
		{
			Instrument: model.Instrument{Symbol: "XLK", Name: "Technology", Group: "Equities - Core Sectors"},
			Assessment: quadrant.Assess("XLK", model.IndicatorPoint{Date: day, CMF21: 0.2, RSMomentum20: 3}, nil),
		},
		{
			Instrument: model.Instrument{Symbol: "XLU", Name: "Utilities", Group: "Equities - Core Sectors"},
			Assessment: quadrant.Assess("XLU", model.IndicatorPoint{Date: day, CMF21: -0.3, RSMomentum20: -2}, nil),
		},
	}
	change := 0.03
	s := snapshot.Build(day.Add(22*time.Hour), "SPY", entries, map[string]macro.Record{
		"DGS10": {Series: "DGS10", Indicator: "10Y Treasury Yield", Date: "2025-03-13", Value: 4.31, Change: &change},
	})
	// A tampered label is ignored on read.
	xlu := s.Instruments["XLU"]
	xlu.Quadrant = string(quadrant.Leading)
	s.Instruments["XLU"] = xlu
	_, err := snapshot.NewWriter(path).Write(s)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, PrintStatus(&buf, path))
	out := buf.String()
	assert.Contains(t, out, "as of 2025-03-14 vs SPY")
	assert.Contains(t, out, "XLK")
	assert.Contains(t, out, "LEADING")
	assert.Contains(t, out, "WEAKENING")
	assert.Contains(t, out, "10Y Treasury Yield")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("XLK")), bytes.Index(buf.Bytes(), []byte("XLU")))
}

func TestPrintStatusMissingSnapshot(t *testing.T) {
	err := PrintStatus(&bytes.Buffer{}, filepath.Join(t.TempDir(), "none.json"))
	assert.Error(t, err)
}
