package types

import (
	"math"
	"time"
)

// Bar is one OHLCV sample for a fixed time interval.
type Bar struct {
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// Field returns the named OHLCV field. ok is false for unknown names.
func (b Bar) Field(name string) (value float64, ok bool) {
	switch name {
	case ColumnOpen:
		return b.Open, true
	case ColumnHigh:
		return b.High, true
	case ColumnLow:
		return b.Low, true
	case ColumnClose:
		return b.Close, true
	case ColumnVolume:
		return b.Volume, true
	default:
		return math.NaN(), false
	}
}

// Contains reports whether price lies within the bar's [Low, High] range.
func (b Bar) Contains(price float64) bool {
	return price >= b.Low && price <= b.High
}

const (
	ColumnOpen   = "open"
	ColumnHigh   = "high"
	ColumnLow    = "low"
	ColumnClose  = "close"
	ColumnVolume = "volume"
)

// BarColumns lists the columns every bar carries.
var BarColumns = []string{ColumnOpen, ColumnHigh, ColumnLow, ColumnClose, ColumnVolume}
