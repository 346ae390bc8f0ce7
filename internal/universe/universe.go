// Package universe defines which instruments, benchmark and macro series a run covers.
package universe

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"sector-flow/internal/model"
)

// MacroSeries names one FRED series to carry into the snapshot.
type MacroSeries struct {
	ID   string `json:"id" yaml:"id" validate:"required"`
	Name string `json:"name" yaml:"name" validate:"required"`
}

// Universe is the full run scope.
type Universe struct {
	Benchmark   string             `yaml:"benchmark" validate:"required,uppercase"`
	Instruments []model.Instrument `yaml:"instruments" validate:"required,min=1,dive"`
	Macro       []MacroSeries      `yaml:"macro" validate:"dive"`
}

const (
	GroupCoreSectors = "Equities - Core Sectors"
	GroupSubSectors  = "Equities - Sub-Sectors"
	GroupFixedIncome = "Fixed Income"
	GroupCommodities = "Commodities"
	GroupCustom      = "Custom"
)

// Default returns the sector-ETF universe benchmarked against SPY.
func Default() *Universe {
	return &Universe{
		Benchmark: "SPY",
		Instruments: []model.Instrument{
			{Symbol: "XLK", Name: "Technology", Group: GroupCoreSectors},
			{Symbol: "XLF", Name: "Financials", Group: GroupCoreSectors},
			{Symbol: "XLE", Name: "Energy", Group: GroupCoreSectors},
			{Symbol: "XLY", Name: "Consumer Discretionary", Group: GroupCoreSectors},
			{Symbol: "XLP", Name: "Consumer Staples", Group: GroupCoreSectors},
			{Symbol: "XLV", Name: "Health Care", Group: GroupCoreSectors},
			{Symbol: "XLI", Name: "Industrials", Group: GroupCoreSectors},
			{Symbol: "XLB", Name: "Materials", Group: GroupCoreSectors},
			{Symbol: "XLRE", Name: "Real Estate", Group: GroupCoreSectors},
			{Symbol: "XLU", Name: "Utilities", Group: GroupCoreSectors},
			{Symbol: "XLC", Name: "Communication Services", Group: GroupCoreSectors},
			{Symbol: "SMH", Name: "Semiconductors", Group: GroupSubSectors},
			{Symbol: "ITA", Name: "Aerospace & Defense", Group: GroupSubSectors},
			{Symbol: "XHB", Name: "Homebuilders", Group: GroupSubSectors},
			{Symbol: "XRT", Name: "Retail", Group: GroupSubSectors},
			{Symbol: "KRE", Name: "Regional Banks", Group: GroupSubSectors},
			{Symbol: "IYT", Name: "Transportation", Group: GroupSubSectors},
			{Symbol: "TLT", Name: "20+ Year Treasuries (Safe Haven)", Group: GroupFixedIncome},
			{Symbol: "HYG", Name: "High Yield Corp Bonds (Credit Risk)", Group: GroupFixedIncome},
			{Symbol: "GLD", Name: "Gold (Safe Haven)", Group: GroupCommodities},
			{Symbol: "CPER", Name: "Copper (Industrial Demand)", Group: GroupCommodities},
		},
		Macro: []MacroSeries{
			{ID: "DGS2", Name: "2Y Treasury Yield"},
			{ID: "DGS10", Name: "10Y Treasury Yield"},
			{ID: "DGS20", Name: "20Y Treasury Yield"},
			{ID: "DGS30", Name: "30Y Treasury Yield"},
			{ID: "T10Y2Y", Name: "Yield Curve Slope (10Y-2Y)"},
			{ID: "T10YIE", Name: "Inflation Expectations"},
			{ID: "BAMLH0A0HYM2", Name: "High Yield Credit Spreads"},
		},
	}
}

// Load reads a universe file. Supported formats:
//   - .yaml/.yml : full Universe document; omitted benchmark/macro fall back to defaults
//   - .txt       : one symbol per line, '#' lines are treated as comments
//   - .json      : JSON array of symbols
//
// An empty path returns Default().
func Load(path string) (*Universe, error) {
	if path == "" {
		return Default(), nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read universe %s: %w", path, err)
	}

	def := Default()
	u := &Universe{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, u); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
	case ".json":
		var symbols []string
		if err := json.Unmarshal(content, &symbols); err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
		u.Instruments = instrumentsFromSymbols(symbols)
	case ".txt":
		u.Instruments = instrumentsFromSymbols(parseSymbolsFromText(string(content)))
	default:
		return nil, fmt.Errorf("unsupported universe file extension %q (use .yaml, .txt or .json)", filepath.Ext(path))
	}
	if u.Benchmark == "" {
		u.Benchmark = def.Benchmark
	}
	if u.Macro == nil {
		u.Macro = def.Macro
	}
	u.normalize()
	if err := u.Validate(); err != nil {
		return nil, err
	}
	slog.Info("loaded universe", "path", path, "instruments", len(u.Instruments), "benchmark", u.Benchmark)
	return u, nil
}

// parseSymbolsFromText parses one symbol per non-empty, non-comment line.
func parseSymbolsFromText(s string) []string {
	var symbols []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			symbols = append(symbols, line)
		}
	}
	return symbols
}

func instrumentsFromSymbols(symbols []string) []model.Instrument {
	out := make([]model.Instrument, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, model.Instrument{Symbol: s, Name: strings.ToUpper(strings.TrimSpace(s)), Group: GroupCustom})
	}
	return out
}

// normalize upper-cases symbols and drops empty and duplicate entries.
func (u *Universe) normalize() {
	u.Benchmark = strings.ToUpper(strings.TrimSpace(u.Benchmark))
	seen := make(map[string]bool)
	kept := u.Instruments[:0]
	for _, in := range u.Instruments {
		in.Symbol = strings.ToUpper(strings.TrimSpace(in.Symbol))
		if in.Symbol == "" || seen[in.Symbol] {
			continue
		}
		seen[in.Symbol] = true
		kept = append(kept, in)
	}
	u.Instruments = kept
}

var validate = validator.New()

// Validate checks struct tags and that the benchmark is not also an instrument.
func (u *Universe) Validate() error {
	if err := validate.Struct(u); err != nil {
		return fmt.Errorf("invalid universe: %w", err)
	}
	for _, in := range u.Instruments {
		if in.Symbol == u.Benchmark {
			return fmt.Errorf("invalid universe: benchmark %s listed as instrument", u.Benchmark)
		}
	}
	return nil
}

// Symbols returns instrument symbols in universe order.
func (u *Universe) Symbols() []string {
	out := make([]string, len(u.Instruments))
	for i, in := range u.Instruments {
		out[i] = in.Symbol
	}
	return out
}

// Lookup returns the instrument for symbol.
func (u *Universe) Lookup(symbol string) (model.Instrument, bool) {
	for _, in := range u.Instruments {
		if in.Symbol == symbol {
			return in, true
		}
	}
	return model.Instrument{}, false
}
