package saver

import (
	"time"

	"github.com/parquet-go/parquet-go"

	"sector-flow/internal/model"
)

// barRow is the on-disk parquet layout. Dates are unix milliseconds at 00:00 UTC.
type barRow struct {
	Timestamp   int64   `parquet:"t"`
	Open        float64 `parquet:"o"`
	High        float64 `parquet:"h"`
	Low         float64 `parquet:"l"`
	Close       float64 `parquet:"c"`
	Volume      float64 `parquet:"v"`
	Provisional bool    `parquet:"provisional"`
}

// ParquetCodec stores bars as Parquet.
type ParquetCodec struct{}

func (ParquetCodec) Extension() string { return "parquet" }

func (ParquetCodec) Save(bars []model.Bar, path string) error {
	rows := make([]barRow, len(bars))
	for i, b := range bars {
		rows[i] = barRow{
			Timestamp:   b.Date.UnixMilli(),
			Open:        b.Open,
			High:        b.High,
			Low:         b.Low,
			Close:       b.Close,
			Volume:      b.Volume,
			Provisional: b.Provisional,
		}
	}
	return parquet.WriteFile(path, rows)
}

func (ParquetCodec) Load(path string) ([]model.Bar, error) {
	rows, err := parquet.ReadFile[barRow](path)
	if err != nil {
		return nil, err
	}
	bars := make([]model.Bar, len(rows))
	for i, r := range rows {
		bars[i] = model.Bar{
			Date:        time.UnixMilli(r.Timestamp).UTC(),
			Open:        r.Open,
			High:        r.High,
			Low:         r.Low,
			Close:       r.Close,
			Volume:      r.Volume,
			Provisional: r.Provisional,
		}
	}
	return bars, nil
}
