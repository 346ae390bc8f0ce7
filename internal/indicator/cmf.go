package indicator

import (
	"gonum.org/v1/gonum/floats"

	"sector-flow/internal/model"
)

// MoneyFlowMultiplier returns ((close-low) - (high-close)) / (high-low), or 0 when high == low.
func MoneyFlowMultiplier(b model.Bar) float64 {
	rng := b.High - b.Low
	if rng == 0 {
		return 0
	}
	return ((b.Close - b.Low) - (b.High - b.Close)) / rng
}

// CMF returns the Chaikin Money Flow of window: sum(multiplier*volume) / sum(volume).
// ok is false when the window total volume is zero.
func CMF(window []model.Bar) (value float64, ok bool) {
	mult := make([]float64, len(window))
	vol := make([]float64, len(window))
	for i, b := range window {
		mult[i] = MoneyFlowMultiplier(b)
		vol[i] = b.Volume
	}
	total := floats.Sum(vol)
	if total <= 0 {
		return 0, false
	}
	return floats.Dot(mult, vol) / total, true
}
