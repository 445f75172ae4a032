package models

import (
	"math"
	"time"
)

// PriceBar is one time-stamped OHLCV observation for a single symbol.
// Bars are immutable once recorded.
type PriceBar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Series is a time-ordered, append-only sequence of bars for one symbol,
// ascending by timestamp with no duplicate timestamps.
type Series struct {
	Symbol string
	Bars   []PriceBar
}

// Len returns the number of bars in the series.
func (s Series) Len() int { return len(s.Bars) }

// Empty reports whether the series has no bars.
func (s Series) Empty() bool { return len(s.Bars) == 0 }

// Undefined is the sentinel for indicator fields that lack the required
// look-back history. Never fabricated values; callers must check Defined.
var Undefined = math.NaN()

// Defined reports whether an indicator value carries real data.
func Defined(v float64) bool { return !math.IsNaN(v) }

// IndicatorRow is a PriceBar augmented with derived fields. Fields without
// sufficient history hold the Undefined sentinel.
type IndicatorRow struct {
	PriceBar

	MA5  float64
	MA20 float64
	MA50 float64

	RSI float64

	BBMiddle float64
	BBUpper  float64
	BBLower  float64

	MACD          float64
	MACDSignal    float64
	MACDHistogram float64

	VolumeMA    float64
	VolumeRatio float64

	PriceChange  float64 // 1-bar simple return
	PriceChange5 float64 // 5-bar simple return
	Volatility   float64 // rolling stddev of 1-bar returns
}
