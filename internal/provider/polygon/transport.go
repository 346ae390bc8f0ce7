package polygon

import (
	"fmt"
	"net/http"
	"time"
)

// baseTransportConfig returns the shared HTTP transport configuration used by Polygon clients.
func baseTransportConfig() *http.Transport {
	return &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          4,
		MaxIdleConnsPerHost:   4,
	}
}

// newHTTPClient creates an HTTP client configured for Polygon requests.
// Per-request deadlines come from the caller's context.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: baseTransportConfig(),
		Timeout:   time.Minute,
	}
}

// NewCrawler constructs a Crawler with a shared HTTP client and a key pool.
// baseURL may be empty for the public endpoint.
func NewCrawler(apiKeys []string, cooldown time.Duration, baseURL string) (*Crawler, error) {
	pool, err := NewKeyPool(apiKeys, cooldown)
	if err != nil {
		return nil, fmt.Errorf("polygon: %w", err)
	}
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, fmt.Errorf("polygon: load timezone: %w", err)
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Crawler{
		client:  newHTTPClient(),
		baseURL: baseURL,
		pool:    pool,
		nyLoc:   loc,
	}, nil
}
