package saver

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sector-flow/internal/model"
)

func sampleBars() []model.Bar {
	d := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	return []model.Bar{
		{Date: d, Open: 10, High: 11, Low: 9.5, Close: 10.75, Volume: 1200},
		{Date: d.AddDate(0, 0, 1), Open: 10.75, High: 10.75, Low: 10.75, Close: 10.75, Volume: 0, Provisional: true},
	}
}

func TestNewBarCodec(t *testing.T) {
	assert.IsType(t, CSVCodec{}, NewBarCodec("CSV"))
	assert.IsType(t, ParquetCodec{}, NewBarCodec(" parquet "))
	assert.IsType(t, JSONCodec{}, NewBarCodec("json"))
	assert.Nil(t, NewBarCodec("xlsx"))
}

func TestCodecsPreserveSeries(t *testing.T) {
	for _, format := range []string{"csv", "parquet", "json"} {
		t.Run(format, func(t *testing.T) {
			c := NewBarCodec(format)
			require.NotNil(t, c)
			path := filepath.Join(t.TempDir(), "XLK."+c.Extension())
			want := sampleBars()

			require.NoError(t, c.Save(want, path))
			got, err := c.Load(path)
			require.NoError(t, err)
			require.Len(t, got, len(want))
			for i := range want {
				assert.True(t, want[i].Date.Equal(got[i].Date), "date %d", i)
				assert.Equal(t, want[i].Close, got[i].Close)
				assert.Equal(t, want[i].Volume, got[i].Volume)
				assert.Equal(t, want[i].Provisional, got[i].Provisional)
			}
		})
	}
}

func TestCSVEmptySeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, CSVCodec{}.Save(nil, path))
	got, err := CSVCodec{}.Load(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}
