package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds application configuration from env
type Config struct {
	DataDir             string        `validate:"required"`
	DataProvider        string        `validate:"oneof=yahoo polygon"`
	PolygonAPIKeys      []string      `validate:"required_if=DataProvider polygon"`
	PolygonBaseURL      string        `validate:"omitempty,url"`
	FREDAPIKey          string        // empty disables macro refresh
	FREDBaseURL         string        `validate:"omitempty,url"`
	UniverseFile        string        // empty uses the built-in sector universe
	Benchmark           string        // overrides the universe benchmark
	SaveFormat          string        `validate:"oneof=csv parquet json"`
	SnapshotFile        string        `validate:"required"`
	LogLevel            string        // debug | info | warn | error
	LogFormat           string        `validate:"oneof=text json"`
	Workers             int           `validate:"min=1,max=64"`
	FetchTimeout        time.Duration `validate:"gt=0"`
	FetchRetries        int           `validate:"min=0,max=10"`
	HistoryLookbackDays int           `validate:"min=60"`
	SettleDelay         time.Duration `validate:"gte=0"`
	MacroObservations   int           `validate:"min=1,max=100"`
	MetricsFile         string        // node-exporter textfile; empty disables
}

var validate = validator.New()

// LoadConfig reads config from environment. A .env file in the working
// directory is loaded first; variables already set take precedence.
// Call Validate after applying command-line overrides.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not load .env", "error", err)
	}
	cfg := &Config{
		DataDir:             getEnv("DATA_DIR", "data"),
		DataProvider:        strings.ToLower(getEnv("DATA_PROVIDER", "yahoo")),
		PolygonBaseURL:      os.Getenv("POLYGON_BASE_URL"),
		FREDAPIKey:          os.Getenv("FRED_API_KEY"),
		FREDBaseURL:         os.Getenv("FRED_BASE_URL"),
		UniverseFile:        os.Getenv("UNIVERSE_FILE"),
		Benchmark:           strings.ToUpper(strings.TrimSpace(os.Getenv("BENCHMARK"))),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           strings.ToLower(getEnv("LOG_FORMAT", "text")),
		Workers:             getEnvAsInt("WORKERS", 4),
		FetchTimeout:        getEnvAsDuration("FETCH_TIMEOUT", 20*time.Second),
		FetchRetries:        getEnvAsInt("FETCH_RETRIES", 3),
		HistoryLookbackDays: getEnvAsInt("HISTORY_LOOKBACK_DAYS", 365),
		SettleDelay:         time.Duration(getEnvAsInt("SESSION_SETTLE_MINUTES", 30)) * time.Minute,
		MacroObservations:   getEnvAsInt("MACRO_OBSERVATIONS", 2),
		MetricsFile:         os.Getenv("METRICS_FILE"),
	}
	cfg.SaveFormat = getSaveFormat()
	cfg.PolygonAPIKeys = parsePolygonAPIKeys()
	cfg.SnapshotFile = os.Getenv("SNAPSHOT_FILE")
	return cfg
}

// Validate fills derived defaults and checks field constraints.
func (c *Config) Validate() error {
	if c.SnapshotFile == "" {
		c.SnapshotFile = filepath.Join(c.DataDir, "dashboard_data.json")
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		slog.Warn("invalid integer env, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

// getEnvAsDuration accepts Go durations ("45s") or plain seconds ("45").
func getEnvAsDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	slog.Warn("invalid duration env, using default", "key", key, "value", v, "default", def)
	return def
}

func getSaveFormat() string {
	if v := os.Getenv("SAVE_FORMAT"); v != "" {
		return strings.ToLower(v)
	}
	switch os.Getenv("PROFILE") {
	case "dev", "development":
		return "csv"
	case "prod", "production", "":
		return "parquet"
	default:
		return "parquet"
	}
}

func parsePolygonAPIKeys() []string {
	s := os.Getenv("POLYGON_API_KEYS")
	if s == "" {
		s = os.Getenv("POLYGON_API_KEY")
	}
	if s == "" {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// BarsDir returns data/bars
func (c *Config) BarsDir() string {
	return filepath.Join(c.DataDir, "bars")
}

// HistoryPath returns path to the indicator history database
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "indicators.db")
}

// StatePath returns path to .state.json
func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, ".state.json")
}

// LockPath returns path to .update.lock
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, ".update.lock")
}
