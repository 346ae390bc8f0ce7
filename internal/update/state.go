package update

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// State is the per-instrument lifecycle position.
type State string

const (
	NeedsFullHistory State = "NEEDS_FULL_HISTORY"
	HasHistory       State = "HAS_HISTORY"
	UpToDate         State = "UP_TO_DATE"
)

// InstrumentState is persisted per symbol between runs.
type InstrumentState struct {
	State     State  `json:"state"`
	LastBar   string `json:"lastBar,omitempty"`
	LastPoint string `json:"lastPoint,omitempty"`
}

// StateUpdate is sent by workers when a symbol finished processing.
type StateUpdate struct {
	Symbol string
	InstrumentState
}

// LoadStates reads the state file. A missing or unreadable file yields an empty map;
// state is advisory and is always re-derived from the stores.
func LoadStates(path string) map[string]InstrumentState {
	data, err := os.ReadFile(path)
	if err != nil {
		return make(map[string]InstrumentState)
	}
	var m map[string]InstrumentState
	if err := json.Unmarshal(data, &m); err != nil {
		slog.Warn("state file unreadable, starting fresh", "path", path, "error", err)
		return make(map[string]InstrumentState)
	}
	if m == nil {
		m = make(map[string]InstrumentState)
	}
	return m
}

// SaveStates writes the state file through a temp file and rename.
func SaveStates(path string, m map[string]InstrumentState) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("state marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("state write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("state rename: %w", err)
	}
	return nil
}

// runStateWriter merges updates into the loaded states and persists once the channel closes.
func runStateWriter(path string, updates <-chan StateUpdate, logger *slog.Logger) {
	m := LoadStates(path)
	for u := range updates {
		m[u.Symbol] = u.InstrumentState
	}
	if err := SaveStates(path, m); err != nil {
		logger.Warn("state write error", "path", path, "error", err)
	}
}
