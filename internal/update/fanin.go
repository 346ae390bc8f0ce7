package update

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"sector-flow/internal/snapshot"
)

func runLogWriter(lines <-chan string, w io.Writer) {
	for s := range lines {
		fmt.Fprintln(w, s)
	}
}

// tally is the fan-in target for worker results.
type tally struct {
	mu           sync.Mutex
	done         int
	appended     int
	points       int
	byOutcome    map[Outcome]int
	successList  []string
	failedList   []failedEntry
	insufficient []string
	entries      []snapshot.Entry
}

func newTally() *tally {
	return &tally{byOutcome: make(map[Outcome]int)}
}

func runResultCollector(results <-chan JobResult, t *tally) {
	for r := range results {
		t.mu.Lock()
		t.done++
		t.byOutcome[r.Outcome]++
		t.appended += r.Appended
		t.points += r.Points
		switch r.Outcome {
		case OutcomeOK:
			t.successList = appendSuccess(t.successList, r.Symbol)
			if r.Entry != nil {
				t.entries = append(t.entries, *r.Entry)
			}
		case OutcomeInsufficient:
			t.successList = appendSuccess(t.successList, r.Symbol)
			t.insufficient = append(t.insufficient, r.Symbol)
		default:
			t.failedList = append(t.failedList, failedEntry{Symbol: r.Symbol, Since: r.Since, Reason: r.Reason})
		}
		t.mu.Unlock()
	}
}

// sorted orders the collected lists so reports and logs do not depend on worker timing.
func (t *tally) sorted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	sort.Strings(t.successList)
	sort.Strings(t.insufficient)
	sort.Slice(t.failedList, func(i, j int) bool { return t.failedList[i].Symbol < t.failedList[j].Symbol })
	sort.Slice(t.entries, func(i, j int) bool { return t.entries[i].Instrument.Symbol < t.entries[j].Instrument.Symbol })
}

func runHeartbeat(ctx context.Context, interval time.Duration, total int, t *tally, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.mu.Lock()
			done, ok, bars := t.done, t.byOutcome[OutcomeOK], t.appended
			failed := t.byOutcome[OutcomeSkipped] + t.byOutcome[OutcomeFailed]
			t.mu.Unlock()
			logger.Info("heartbeat", "done", done, "total", total, "ok", ok, "failed", failed, "bars", bars)
		}
	}
}
