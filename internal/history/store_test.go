package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sector-flow/internal/model"
)

func pt(day int, cmf, rs float64) model.IndicatorPoint {
	return model.IndicatorPoint{Date: time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC), CMF21: cmf, RSMomentum20: rs}
}

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLastDateEmpty(t *testing.T) {
	s := openTest(t)
	_, ok, err := s.LastDate(context.Background(), "XLK")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAppendAndQuery(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	require.NoError(t, s.Append(ctx, "XLK", []model.IndicatorPoint{pt(3, 0.1, 1), pt(4, 0.2, 2), pt(5, 0.3, 3)}))
	require.NoError(t, s.Append(ctx, "XLF", []model.IndicatorPoint{pt(4, -0.1, -1)}))

	last, ok, err := s.LastDate(ctx, "XLK")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, pt(5, 0, 0).Date.Equal(last))

	latest, err := s.Latest(ctx, "XLK", 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, 0.2, latest[0].CMF21)
	assert.Equal(t, 0.3, latest[1].CMF21)

	after, err := s.After(ctx, "XLK", pt(3, 0, 0).Date)
	require.NoError(t, err)
	assert.Len(t, after, 2)
}

func TestAppendReplacesSameDay(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	require.NoError(t, s.Append(ctx, "XLK", []model.IndicatorPoint{pt(3, 0.1, 1)}))
	require.NoError(t, s.Append(ctx, "XLK", []model.IndicatorPoint{pt(3, 0.5, 5)}))

	latest, err := s.Latest(ctx, "XLK", 10)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, 0.5, latest[0].CMF21)
}

func TestTruncate(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	require.NoError(t, s.Append(ctx, "XLK", []model.IndicatorPoint{pt(3, 0.1, 1), pt(4, 0.2, 2)}))
	require.NoError(t, s.Truncate(ctx, "XLK", pt(3, 0, 0).Date))

	last, _, err := s.LastDate(ctx, "XLK")
	require.NoError(t, err)
	assert.True(t, pt(3, 0, 0).Date.Equal(last))
}
