package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics of one update run. A batch job has no
// scrape endpoint, so the registry is dumped to a node-exporter textfile at the end.
type Metrics struct {
	registry *prometheus.Registry

	InstrumentsTotal *prometheus.CounterVec // labels: result=ok|skipped|insufficient|failed
	BarsAppended     prometheus.Counter
	BarsRejected     prometheus.Counter
	PointsComputed   prometheus.Counter
	FetchDuration    prometheus.Histogram
	MacroFailures    prometheus.Counter
	SnapshotWritten  prometheus.Gauge // 1 when the file changed this run
	LastRunTimestamp prometheus.Gauge
	RunDuration      prometheus.Gauge
}

// New registers and returns all metrics on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		InstrumentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sectorflow_instruments_total",
			Help: "Instruments processed in the run by result",
		}, []string{"result"}),
		BarsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sectorflow_bars_appended_total",
			Help: "Bars appended or replaced in the bar store",
		}),
		BarsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sectorflow_bars_rejected_total",
			Help: "Incoming bars rejected by integrity checks",
		}),
		PointsComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sectorflow_indicator_points_total",
			Help: "Indicator points computed in the run",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sectorflow_fetch_duration_seconds",
			Help:    "Market data fetch latency including retries",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		MacroFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sectorflow_macro_failures_total",
			Help: "Macro series that could not be refreshed",
		}),
		SnapshotWritten: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sectorflow_snapshot_written",
			Help: "1 if the snapshot file was replaced in the last run",
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sectorflow_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sectorflow_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
	}
	m.registry.MustRegister(
		m.InstrumentsTotal,
		m.BarsAppended,
		m.BarsRejected,
		m.PointsComputed,
		m.FetchDuration,
		m.MacroFailures,
		m.SnapshotWritten,
		m.LastRunTimestamp,
		m.RunDuration,
	)
	return m
}

// Registry exposes the registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Finish stamps run time gauges.
func (m *Metrics) Finish(start, end time.Time) {
	m.LastRunTimestamp.Set(float64(end.Unix()))
	m.RunDuration.Set(end.Sub(start).Seconds())
}

// WriteTextfile writes the registry in text exposition format. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("metrics textfile: %w", err)
	}
	return nil
}
