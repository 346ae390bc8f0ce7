package polygon

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"sector-flow/internal/model"
)

// BarRaw is one daily aggregate as returned by Polygon.
type BarRaw struct {
	Timestamp    int64           `json:"t"` // session start, Unix ms
	Open         float64         `json:"o"`
	High         float64         `json:"h"`
	Low          float64         `json:"l"`
	Close        float64         `json:"c"`
	Volume       FlexibleFloat64 `json:"v"`
	VWAP         float64         `json:"vw,omitempty"`
	Transactions FlexibleFloat64 `json:"n,omitempty"`
}

// ToBar converts BarRaw to model.Bar. The trading day is read in the exchange location
// because daily timestamps are exchange-local midnight.
func (br BarRaw) ToBar(loc *time.Location) model.Bar {
	return model.Bar{
		Date:   model.Day(time.UnixMilli(br.Timestamp).In(loc)),
		Open:   br.Open,
		High:   br.High,
		Low:    br.Low,
		Close:  br.Close,
		Volume: br.Volume.Float64(),
	}
}

// AggregatesResponse is Polygon API response with next_url
type AggregatesResponse struct {
	Ticker       string   `json:"ticker"`
	QueryCount   int      `json:"queryCount"`
	ResultsCount int      `json:"resultsCount"`
	Adjusted     bool     `json:"adjusted"`
	Results      []BarRaw `json:"results"`
	Status       string   `json:"status"`
	RequestID    string   `json:"request_id"`
	Count        int      `json:"count"`
	NextURL      string   `json:"next_url,omitempty"`
}

// FlexibleFloat64 parses a JSON number or a numeric string (including scientific notation).
type FlexibleFloat64 float64

// UnmarshalJSON parses number or string
func (f *FlexibleFloat64) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		val, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return err
		}
		*f = FlexibleFloat64(val)
		return nil
	}

	var floatVal float64
	if err := json.Unmarshal(data, &floatVal); err == nil {
		*f = FlexibleFloat64(floatVal)
		return nil
	}

	return fmt.Errorf("cannot parse as number: %s", string(data))
}

// Float64 returns float64 value
func (f FlexibleFloat64) Float64() float64 {
	return float64(f)
}
