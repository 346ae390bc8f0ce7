package polygon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sector-flow/internal/provider"
)

const dailyAggs = `{"ticker":"XLK","status":"OK","resultsCount":2,"results":[
 {"t":1741579200000,"o":220.1,"h":222.5,"l":219.0,"c":221.3,"v":"8.1e6"},
 {"t":1741665600000,"o":221.3,"h":223.0,"l":220.2,"c":222.8,"v":7650000}
]}`

func newTestCrawler(t *testing.T, h http.HandlerFunc) *Crawler {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewCrawler([]string{"testkey123456"}, 0, srv.URL)
	require.NoError(t, err)
	return c
}

func TestGetDailyBars(t *testing.T) {
	var gotPath, gotKey string
	c := newTestCrawler(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("apiKey")
		w.Write([]byte(dailyAggs))
	})

	bars, err := c.GetDailyBars(context.Background(), "XLK", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.True(t, strings.HasPrefix(gotPath, "/v2/aggs/ticker/XLK/range/1/day/2025-03-10/"))
	assert.Equal(t, "testkey123456", gotKey)
	// 1741579200000 = 2025-03-10 00:00 America/New_York
	assert.Equal(t, "2025-03-10", bars[0].DateString())
	assert.Equal(t, 8.1e6, bars[0].Volume)
	assert.Equal(t, 222.8, bars[1].Close)
}

func TestGetDailyBarsClassifiesStatus(t *testing.T) {
	c := newTestCrawler(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/BAD/") {
			http.Error(w, `{"status":"NOT_AUTHORIZED"}`, http.StatusForbidden)
			return
		}
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	_, err := c.GetDailyBars(context.Background(), "BAD", time.Now().AddDate(0, 0, -3))
	assert.ErrorIs(t, err, provider.ErrPermanent)

	_, err = c.GetDailyBars(context.Background(), "XLK", time.Now().AddDate(0, 0, -3))
	require.Error(t, err)
	assert.NotErrorIs(t, err, provider.ErrPermanent, "429 is retryable")
}

func TestGetDailyBarsFutureSinceIsEmpty(t *testing.T) {
	c := newTestCrawler(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	bars, err := c.GetDailyBars(context.Background(), "XLK", time.Now().AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestKeyPoolCooldown(t *testing.T) {
	p, err := NewKeyPool([]string{"k1"}, 20*time.Millisecond)
	require.NoError(t, err)

	k, err := p.Take(context.Background())
	require.NoError(t, err)
	p.Return(k)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err = p.Take(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "key still cooling down")

	k, err = p.Take(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "k1", k)
}

func TestNewKeyPoolRequiresKeys(t *testing.T) {
	_, err := NewKeyPool(nil, time.Second)
	assert.Error(t, err)
}

// BenchmarkKeyPoolFlow 3 keys, 9 tickers, 12ms cooldown (simulating 12s)
func BenchmarkKeyPoolFlow(b *testing.B) {
	tickers := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I"}
	for i := 0; i < b.N; i++ {
		p, _ := NewKeyPool([]string{"key1", "key2", "key3"}, 12*time.Millisecond)
		var wg sync.WaitGroup
		for range tickers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				k, _ := p.Take(context.Background())
				p.Return(k)
			}()
		}
		wg.Wait()
	}
}
