package macro

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"sector-flow/internal/model"
)

const fredBaseURL = "https://api.stlouisfed.org"

// FRED reads series observations from the St. Louis Fed API.
type FRED struct {
	apiKey  string
	baseURL string
	client  *http.Client
	retries uint64
}

var _ Source = (*FRED)(nil)

// NewFRED returns a client for apiKey. baseURL may be empty for the public endpoint.
func NewFRED(apiKey, baseURL string, timeout time.Duration) *FRED {
	if baseURL == "" {
		baseURL = fredBaseURL
	}
	return &FRED{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		retries: 2,
	}
}

type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// Observations returns up to limit most recent observations of id, newest first.
// FRED reports missing values as "."; those are dropped.
func (f *FRED) Observations(ctx context.Context, id string, limit int) ([]Observation, error) {
	u, err := url.Parse(f.baseURL + "/fred/series/observations")
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}
	q := u.Query()
	q.Set("series_id", id)
	q.Set("api_key", f.apiKey)
	q.Set("file_type", "json")
	q.Set("sort_order", "desc")
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	op := func() (*observationsResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			err := fmt.Errorf("FRED status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		var out observationsResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("parse JSON: %w", err))
		}
		return &out, nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(backoff.WithInitialInterval(500*time.Millisecond)), f.retries), ctx)
	resp, err := backoff.RetryWithData(op, b)
	if err != nil {
		return nil, fmt.Errorf("fred %s: %w", id, err)
	}

	obs := make([]Observation, 0, len(resp.Observations))
	for _, o := range resp.Observations {
		if o.Value == "." || o.Value == "" {
			continue
		}
		v, err := strconv.ParseFloat(o.Value, 64)
		if err != nil {
			continue
		}
		d, err := time.ParseInLocation(model.DateLayout, o.Date, time.UTC)
		if err != nil {
			continue
		}
		obs = append(obs, Observation{Date: d, Value: v})
	}
	return obs, nil
}
