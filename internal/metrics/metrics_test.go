package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.InstrumentsTotal.WithLabelValues("ok").Add(3)
	m.InstrumentsTotal.WithLabelValues("skipped").Inc()
	m.SnapshotWritten.Set(1)
	start := time.Unix(1700000000, 0)
	m.Finish(start, start.Add(2*time.Second))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.InstrumentsTotal.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunDuration))

	path := filepath.Join(t.TempDir(), "textfile", "sectorflow.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `sectorflow_instruments_total{result="skipped"} 1`))
	assert.True(t, strings.Contains(string(data), "sectorflow_last_run_timestamp_seconds 1.700000002e+09"))
}

func TestWriteTextfileEmptyPath(t *testing.T) {
	assert.NoError(t, New().WriteTextfile(""))
}
