package update

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type failedEntry struct {
	Symbol string `json:"symbol"`
	Since  string `json:"since,omitempty"`
	Reason string `json:"reason"`
}

// writeRunReport replaces .lastrun.success.json and .lastrun.failed.json in dir.
// Both files are always written so a clean run clears the previous failures.
func writeRunReport(dir string, successList []string, failedList []failedEntry) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if successList == nil {
		successList = []string{}
	}
	if failedList == nil {
		failedList = []failedEntry{}
	}
	successPath, failedPath := ReportPaths(dir)
	if err := writeJSON(successPath, successList); err != nil {
		return err
	}
	return writeJSON(failedPath, failedList)
}

// ReportPaths returns the run report files written into dir.
func ReportPaths(dir string) (success, failed string) {
	return filepath.Join(dir, ".lastrun.success.json"), filepath.Join(dir, ".lastrun.failed.json")
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func appendSuccess(list []string, symbol string) []string {
	for _, s := range list {
		if s == symbol {
			return list
		}
	}
	return append(list, symbol)
}

func joinFailedReasons(failedList []failedEntry) string {
	if len(failedList) == 0 {
		return ""
	}
	var b strings.Builder
	for i, f := range failedList {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f.Symbol)
		b.WriteString(": ")
		b.WriteString(f.Reason)
		if i >= 4 && len(failedList) > 6 {
			b.WriteString(fmt.Sprintf(" (+%d more)", len(failedList)-5))
			break
		}
	}
	return b.String()
}
