package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"sector-flow/internal/barstore"
	"sector-flow/internal/history"
	"sector-flow/internal/indicator"
	"sector-flow/internal/macro"
	"sector-flow/internal/metrics"
	"sector-flow/internal/model"
	"sector-flow/internal/provider"
	"sector-flow/internal/quadrant"
	"sector-flow/internal/session"
	"sector-flow/internal/slogx"
	"sector-flow/internal/snapshot"
	"sector-flow/internal/universe"
)

// ErrBenchmarkUnavailable is returned when the benchmark can neither be fetched
// nor read from the bar store. No relative strength can be computed without it.
var ErrBenchmarkUnavailable = errors.New("benchmark unavailable")

// DefaultLookbackDays is the history pulled for a symbol with an empty bar store.
const DefaultLookbackDays = 365

// Outcome classifies one instrument's run.
type Outcome string

const (
	OutcomeOK           Outcome = "ok"
	OutcomeInsufficient Outcome = "insufficient"
	OutcomeSkipped      Outcome = "skipped" // fetch failed after retries
	OutcomeFailed       Outcome = "failed"  // local storage error
)

// JobResult is sent by workers for fan-in.
type JobResult struct {
	Symbol   string
	Outcome  Outcome
	Since    string
	Reason   string
	Appended int
	Points   int
	Entry    *snapshot.Entry
}

// Options tune one run.
type Options struct {
	// Rebuild drops stored indicator points and recomputes them from the bar store.
	Rebuild bool
}

// Result summarises a finished run.
type Result struct {
	Snapshot     *snapshot.Snapshot
	Written      bool
	Succeeded    []string
	Insufficient []string
	Failed       []string
}

// Updater runs the fetch, merge, compute and publish pipeline.
type Updater struct {
	Universe  *universe.Universe
	Market    provider.MarketData
	Bars      *barstore.Store
	History   *history.Store
	Filter    *session.Filter
	Engine    *indicator.Engine
	Macro     *macro.Collector
	Snapshots *snapshot.Writer
	Metrics   *metrics.Metrics

	Workers      int
	LookbackDays int
	StatePath    string // .state.json
	ReportDir    string // .lastrun.*.json
	RunID        string

	Logger            *slog.Logger
	LogLevel          slog.Level
	LogFormat         string
	LogSink           io.Writer // worker log lines; stderr when nil
	HeartbeatInterval time.Duration
	Now               func() time.Time
}

func (u *Updater) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}

func (u *Updater) logger() *slog.Logger {
	l := u.Logger
	if l == nil {
		l = slog.Default()
	}
	if u.RunID != "" {
		l = l.With("run_id", u.RunID)
	}
	return l
}

func (u *Updater) since(stored []model.Bar, now time.Time) time.Time {
	if from, ok := barstore.FetchFrom(stored); ok {
		return from
	}
	days := u.LookbackDays
	if days <= 0 {
		days = DefaultLookbackDays
	}
	return u.Filter.Calendar.Today(now).AddDate(0, 0, -days)
}

// Run executes one update. Instrument failures degrade the snapshot; only a
// missing benchmark or a failed snapshot write fail the run.
func (u *Updater) Run(ctx context.Context, opts Options) (*Result, error) {
	start := u.now()
	now := start
	logger := u.logger()
	logger.Info("update start", "instruments", len(u.Universe.Instruments), "benchmark", u.Universe.Benchmark,
		"provider", u.Market.GetName(), "last_closed_session", u.Filter.LastClosedSession(now).Format(model.DateLayout))

	states := make(chan StateUpdate, len(u.Universe.Instruments)+1)
	var stateWg sync.WaitGroup
	stateWg.Add(1)
	go func() {
		defer stateWg.Done()
		runStateWriter(u.StatePath, states, logger)
	}()
	closeStates := sync.OnceFunc(func() {
		close(states)
		stateWg.Wait()
	})
	defer closeStates()

	if opts.Rebuild {
		logger.Info("rebuild requested, indicator history will be recomputed")
	}
	bench, err := u.refreshBenchmark(ctx, now, logger, states)
	if err != nil {
		return nil, err
	}

	t := u.runInstruments(ctx, now, bench, opts, states)
	closeStates()
	t.sorted()

	if err := writeRunReport(u.ReportDir, t.successList, t.failedList); err != nil {
		logger.Warn("could not write run report", "error", err)
	}
	if len(t.failedList) > 0 {
		logger.Warn("instruments skipped", "count", len(t.failedList), "reasons", joinFailedReasons(t.failedList))
	}

	prior, err := snapshot.Load(u.Snapshots.Path)
	if err != nil {
		logger.Warn("prior snapshot unreadable, macro fallback disabled", "error", err)
		prior = nil
	}
	macroRecords := u.collectMacro(ctx, prior, logger)

	snap := snapshot.Build(now, u.Universe.Benchmark, t.entries, macroRecords)
	written, err := u.Snapshots.Write(snap)
	if err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}

	res := &Result{
		Snapshot:     snap,
		Written:      written,
		Succeeded:    t.successList,
		Insufficient: t.insufficient,
	}
	for _, f := range t.failedList {
		res.Failed = append(res.Failed, f.Symbol)
	}
	if m := u.Metrics; m != nil {
		for outcome, n := range t.byOutcome {
			m.InstrumentsTotal.WithLabelValues(string(outcome)).Add(float64(n))
		}
		m.BarsAppended.Add(float64(t.appended))
		m.PointsComputed.Add(float64(t.points))
		if written {
			m.SnapshotWritten.Set(1)
		} else {
			m.SnapshotWritten.Set(0)
		}
		m.Finish(start, u.now())
	}
	logger.Info("update done",
		"as_of", snap.AsOf,
		"instruments", len(snap.Instruments),
		"insufficient", len(t.insufficient),
		"skipped", len(t.failedList),
		"written", written,
		"path", u.Snapshots.Path,
	)
	return res, nil
}

// refreshBenchmark fetches and merges the benchmark before any instrument work.
// A failed fetch falls back to the stored series.
func (u *Updater) refreshBenchmark(ctx context.Context, now time.Time, logger *slog.Logger, states chan<- StateUpdate) ([]model.Bar, error) {
	sym := u.Universe.Benchmark
	bars, _, err := u.refreshBars(ctx, sym, now, logger)
	if err != nil {
		stored, loadErr := u.Bars.Load(sym)
		if loadErr != nil || len(stored) == 0 {
			return nil, fmt.Errorf("%w: %s: %v", ErrBenchmarkUnavailable, sym, err)
		}
		logger.Warn("benchmark fetch failed, using stored history", "symbol", sym, "bars", len(stored), "error", err)
		bars = stored
	}
	eligible := u.Filter.Eligible(now, bars)
	if len(eligible) == 0 {
		return nil, fmt.Errorf("%w: %s has no closed sessions", ErrBenchmarkUnavailable, sym)
	}
	st := InstrumentState{State: UpToDate, LastBar: eligible[len(eligible)-1].DateString()}
	if len(eligible) < u.Engine.RSPeriod+1 {
		st.State = NeedsFullHistory
	}
	states <- StateUpdate{Symbol: sym, InstrumentState: st}
	return eligible, nil
}

// refreshBars fetches the missing tail of symbol, merges it and persists the result.
// It returns the merged series and the number of bars appended or replaced.
func (u *Updater) refreshBars(ctx context.Context, symbol string, now time.Time, logger *slog.Logger) ([]model.Bar, int, error) {
	stored, err := u.Bars.Load(symbol)
	if err != nil {
		return nil, 0, err
	}
	since := u.since(stored, now)

	fetchStart := time.Now()
	incoming, err := u.Market.GetDailyBars(ctx, symbol, since)
	if u.Metrics != nil {
		u.Metrics.FetchDuration.Observe(time.Since(fetchStart).Seconds())
	}
	if err != nil {
		return nil, 0, &fetchError{since: since.Format(model.DateLayout), err: err}
	}

	merged := barstore.Merge(stored, u.Filter.MarkProvisional(now, incoming))
	for _, rej := range merged.Rejected {
		logger.Warn("bar rejected", "symbol", symbol, "reason", rej)
	}
	if u.Metrics != nil {
		u.Metrics.BarsRejected.Add(float64(len(merged.Rejected)))
	}
	bars, dropped := barstore.DropUnconfirmed(merged.Bars, incoming, func(day time.Time) bool {
		return u.Filter.Status(now, day) == session.Closed
	})
	for _, b := range dropped {
		logger.Warn("provisional bar dropped, provider no longer returns it", "symbol", symbol, "date", b.DateString())
	}
	if merged.Changed() || len(dropped) > 0 {
		if err := u.Bars.Save(symbol, bars); err != nil {
			return nil, 0, err
		}
	}
	logger.Debug("bars merged", "symbol", symbol, "since", since.Format(model.DateLayout),
		"appended", merged.Appended, "replaced", merged.Replaced, "unchanged", merged.Unchanged, "dropped", len(dropped))
	return bars, merged.Appended + merged.Replaced, nil
}

// runInstruments processes the universe with a bounded worker pool.
func (u *Updater) runInstruments(ctx context.Context, now time.Time, bench []model.Bar, opts Options, states chan<- StateUpdate) *tally {
	sink := u.LogSink
	if sink == nil {
		sink = os.Stderr
	}
	logs := make(chan string, 2048)
	logger := slogx.NewChanLogger(logs, u.LogLevel, u.LogFormat)
	if u.RunID != "" {
		logger = logger.With("run_id", u.RunID)
	}
	var logWg sync.WaitGroup
	logWg.Add(1)
	go func() {
		defer logWg.Done()
		runLogWriter(logs, sink)
	}()
	defer func() {
		close(logs)
		logWg.Wait()
	}()

	instruments := u.Universe.Instruments
	pending := make(chan model.Instrument, len(instruments))
	for _, inst := range instruments {
		pending <- inst
	}
	close(pending)

	results := make(chan JobResult, len(instruments))
	t := newTally()
	var resWg sync.WaitGroup
	resWg.Add(1)
	go func() {
		defer resWg.Done()
		runResultCollector(results, t)
	}()

	hbCtx, cancel := context.WithCancel(ctx)
	var hbWg sync.WaitGroup
	hbWg.Add(1)
	go func() {
		defer hbWg.Done()
		runHeartbeat(hbCtx, u.HeartbeatInterval, len(instruments), t, logger)
	}()
	defer func() {
		cancel()
		hbWg.Wait()
	}()

	workers := u.Workers
	if workers <= 0 {
		workers = 1
	}
	workers = min(workers, max(len(instruments), 1))
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for inst := range pending {
				r := u.processInstrument(ctx, inst, bench, now, opts, logger)
				if r.Outcome != OutcomeSkipped && r.Outcome != OutcomeFailed {
					states <- StateUpdate{Symbol: inst.Symbol, InstrumentState: r.state}
				}
				results <- r.JobResult
			}
		}()
	}
	wg.Wait()
	close(results)
	resWg.Wait()

	logger.Info("summary", "ok", t.byOutcome[OutcomeOK], "insufficient", t.byOutcome[OutcomeInsufficient],
		"skipped", t.byOutcome[OutcomeSkipped], "failed", t.byOutcome[OutcomeFailed], "bars", t.appended, "points", t.points)
	return t
}

type instrumentResult struct {
	JobResult
	state InstrumentState
}

// processInstrument runs fetch, merge, filter, compute and assess for one symbol.
func (u *Updater) processInstrument(ctx context.Context, inst model.Instrument, bench []model.Bar, now time.Time, opts Options, logger *slog.Logger) instrumentResult {
	sym := inst.Symbol
	r := instrumentResult{JobResult: JobResult{Symbol: sym}}
	fail := func(outcome Outcome, err error) instrumentResult {
		r.Outcome = outcome
		r.Reason = err.Error()
		logger.Error("instrument skipped", "symbol", sym, "outcome", outcome, "reason", r.Reason)
		return r
	}

	bars, changed, err := u.refreshBars(ctx, sym, now, logger)
	if err != nil {
		var fe *fetchError
		if errors.As(err, &fe) {
			r.Since = fe.since
			return fail(OutcomeSkipped, err)
		}
		return fail(OutcomeFailed, err)
	}
	r.Appended = changed

	eligible := u.Filter.Eligible(now, bars)
	if len(eligible) > 0 {
		r.state.LastBar = eligible[len(eligible)-1].DateString()
	}

	if opts.Rebuild {
		if err := u.History.Truncate(ctx, sym, time.Time{}); err != nil {
			return fail(OutcomeFailed, err)
		}
	}
	last, ok, err := u.History.LastDate(ctx, sym)
	if err != nil {
		return fail(OutcomeFailed, err)
	}
	var after time.Time
	if ok {
		after = last
	}
	points := u.Engine.Compute(eligible, bench, after)
	if err := u.History.Append(ctx, sym, points); err != nil {
		return fail(OutcomeFailed, err)
	}
	r.Points = len(points)

	latest, err := u.History.Latest(ctx, sym, 2)
	if err != nil {
		return fail(OutcomeFailed, err)
	}
	if len(eligible) < u.Engine.CMFPeriod || len(latest) == 0 {
		r.Outcome = OutcomeInsufficient
		r.state.State = NeedsFullHistory
		logger.Info("insufficient history", "symbol", sym, "eligible_bars", len(eligible), "need", u.Engine.CMFPeriod)
		return r
	}

	cur := latest[len(latest)-1]
	var prev *model.IndicatorPoint
	if len(latest) > 1 {
		prev = &latest[0]
	}
	r.state.LastPoint = cur.Date.Format(model.DateLayout)
	r.state.State = HasHistory
	if r.state.LastPoint == r.state.LastBar {
		r.state.State = UpToDate
	}
	r.Outcome = OutcomeOK
	r.Entry = &snapshot.Entry{Instrument: inst, Assessment: quadrant.Assess(sym, cur, prev)}
	logger.Info("instrument ok", "symbol", sym, "bars", changed, "points", len(points), "date", r.state.LastPoint, "state", r.state.State)
	return r
}

func (u *Updater) collectMacro(ctx context.Context, prior *snapshot.Snapshot, logger *slog.Logger) map[string]macro.Record {
	var priorRecords map[string]macro.Record
	if prior != nil {
		priorRecords = prior.Macro
	}
	if u.Macro == nil {
		return priorRecords
	}
	if u.Macro.Source == nil {
		logger.Warn("macro source not configured, carrying prior values")
	}
	records, errs := u.Macro.Collect(ctx, priorRecords)
	for _, err := range errs {
		logger.Warn("macro series failed", "error", err)
	}
	if u.Metrics != nil {
		u.Metrics.MacroFailures.Add(float64(len(errs)))
	}
	return records
}

// fetchError marks errors raised by the market data call rather than local storage.
type fetchError struct {
	since string
	err   error
}

func (e *fetchError) Error() string { return "fetch since " + e.since + ": " + e.err.Error() }
func (e *fetchError) Unwrap() error { return e.err }
