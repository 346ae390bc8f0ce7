package saver

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"sector-flow/internal/model"
)

var csvHeader = []string{"date", "o", "h", "l", "c", "v", "provisional"}

// CSVCodec stores bars as CSV (header: date,o,h,l,c,v,provisional).
type CSVCodec struct{}

func (CSVCodec) Extension() string { return "csv" }

func (CSVCodec) Save(bars []model.Bar, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)

	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return err
	}
	for _, b := range bars {
		if err := w.Write([]string{
			b.DateString(),
			floatStr(b.Open),
			floatStr(b.High),
			floatStr(b.Low),
			floatStr(b.Close),
			floatStr(b.Volume),
			strconv.FormatBool(b.Provisional),
		}); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (CSVCodec) Load(path string) ([]model.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	bars := make([]model.Bar, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != len(csvHeader) {
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", i+2, len(csvHeader), len(rec))
		}
		b, err := parseCSVRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func parseCSVRecord(rec []string) (model.Bar, error) {
	var b model.Bar
	d, err := time.ParseInLocation(model.DateLayout, rec[0], time.UTC)
	if err != nil {
		return b, err
	}
	b.Date = d
	vals := make([]float64, 5)
	for i := range vals {
		if vals[i], err = strconv.ParseFloat(rec[i+1], 64); err != nil {
			return b, err
		}
	}
	b.Open, b.High, b.Low, b.Close, b.Volume = vals[0], vals[1], vals[2], vals[3], vals[4]
	if b.Provisional, err = strconv.ParseBool(rec[6]); err != nil {
		return b, err
	}
	return b, nil
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
