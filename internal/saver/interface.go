package saver

import (
	"strings"

	"sector-flow/internal/model"
)

// BarCodec persists one instrument's daily bar series as a single file.
// The bar store depends on this interface only; the format is chosen from config.
type BarCodec interface {
	Save(bars []model.Bar, path string) error
	Load(path string) ([]model.Bar, error)
	Extension() string
}

// NewBarCodec creates implementation by format (csv, parquet, json).
// Returns nil if format not supported.
func NewBarCodec(format string) BarCodec {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVCodec{}
	case "parquet":
		return ParquetCodec{}
	case "json":
		return JSONCodec{}
	default:
		return nil
	}
}
