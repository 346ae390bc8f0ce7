package slogx

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestChanWriterSplitsLines(t *testing.T) {
	ch := make(chan string, 4)
	w := &ChanWriter{Ch: ch}
	_, _ = w.Write([]byte("a=1\nb="))
	_, _ = w.Write([]byte("2\n"))
	close(ch)
	var got []string
	for s := range ch {
		got = append(got, s)
	}
	assert.Equal(t, []string{"a=1", "b=2"}, got)
}

func TestChanWriterDropsWhenFull(t *testing.T) {
	ch := make(chan string, 1)
	w := &ChanWriter{Ch: ch}
	n, err := w.Write([]byte("one\ntwo\n"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, "one", <-ch)
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "debug", "json").Debug("hello", "symbol", "XLK")
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "hello", m["msg"])
	assert.Equal(t, "XLK", m["symbol"])
}

func TestChanLoggerRespectsLevel(t *testing.T) {
	ch := make(chan string, 4)
	logger := NewChanLogger(ch, slog.LevelWarn, "text")
	logger.Info("skip")
	logger.Warn("keep")
	close(ch)
	var got []string
	for s := range ch {
		got = append(got, s)
	}
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "msg=keep")
}
