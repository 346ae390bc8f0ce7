package model

import "time"

// IndicatorPoint is one computed observation for an instrument.
type IndicatorPoint struct {
	Date         time.Time `json:"date"`
	CMF21        float64   `json:"cmf21"`
	RSMomentum20 float64   `json:"rsMomentum20"`
}

// Instrument is a member of the tracked universe.
type Instrument struct {
	Symbol string `json:"symbol" yaml:"symbol" validate:"required,uppercase"`
	Name   string `json:"name" yaml:"name" validate:"required"`
	Group  string `json:"group" yaml:"group" validate:"required"`
}
