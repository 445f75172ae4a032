// Package indicators derives technical signals from OHLCV series.
//
// Every computation is right-aligned: the value at row i uses bars 0..i
// only, so appending bars never changes earlier rows. Fields without the
// required look-back hold models.Undefined.
package indicators

import (
	"math"

	"MarketWatch/internal/domain/models"
)

const (
	maShortWindow = 5
	maMidWindow   = 20
	maLongWindow  = 50

	rsiWindow = 14

	bollingerWindow = 20
	bollingerWidth  = 2.0

	macdFastSpan   = 12
	macdSlowSpan   = 26
	macdSignalSpan = 9

	volumeWindow     = 20
	volatilityWindow = 20
)

// Compute returns one IndicatorRow per input bar, aligned by position.
// An empty series yields an empty result.
func Compute(series models.Series) []models.IndicatorRow {
	n := series.Len()
	rows := make([]models.IndicatorRow, n)
	if n == 0 {
		return rows
	}

	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range series.Bars {
		rows[i].PriceBar = b
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	ma5 := rollingMean(closes, maShortWindow)
	ma20 := rollingMean(closes, maMidWindow)
	ma50 := rollingMean(closes, maLongWindow)
	bbStd := rollingStd(closes, bollingerWindow)
	volMA := rollingMean(volumes, volumeWindow)

	rsi := relativeStrength(closes, rsiWindow)

	fast := ema(closes, macdFastSpan)
	slow := ema(closes, macdSlowSpan)
	macd := make([]float64, n)
	for i := range macd {
		macd[i] = fast[i] - slow[i]
	}
	signal := ema(macd, macdSignalSpan)

	returns := simpleReturns(closes, 1)
	returns5 := simpleReturns(closes, 5)
	volatility := rollingStd(returns, volatilityWindow)

	for i := range rows {
		rows[i].MA5 = ma5[i]
		rows[i].MA20 = ma20[i]
		rows[i].MA50 = ma50[i]
		rows[i].RSI = rsi[i]

		rows[i].BBMiddle = ma20[i]
		if models.Defined(ma20[i]) && models.Defined(bbStd[i]) {
			rows[i].BBUpper = ma20[i] + bollingerWidth*bbStd[i]
			rows[i].BBLower = ma20[i] - bollingerWidth*bbStd[i]
		} else {
			rows[i].BBUpper = models.Undefined
			rows[i].BBLower = models.Undefined
		}

		rows[i].MACD = macd[i]
		rows[i].MACDSignal = signal[i]
		rows[i].MACDHistogram = macd[i] - signal[i]

		rows[i].VolumeMA = volMA[i]
		if models.Defined(volMA[i]) && volMA[i] > 0 {
			rows[i].VolumeRatio = volumes[i] / volMA[i]
		} else {
			rows[i].VolumeRatio = models.Undefined
		}

		rows[i].PriceChange = returns[i]
		rows[i].PriceChange5 = returns5[i]
		rows[i].Volatility = volatility[i]
	}

	return rows
}

// rollingMean computes a trailing mean; undefined until the window is
// full of defined inputs.
func rollingMean(vals []float64, window int) []float64 {
	out := undefinedSlice(len(vals))
	if window <= 0 || len(vals) < window {
		return out
	}
	for i := window - 1; i < len(vals); i++ {
		sum := 0.0
		ok := true
		for j := i - window + 1; j <= i; j++ {
			if !models.Defined(vals[j]) {
				ok = false
				break
			}
			sum += vals[j]
		}
		if ok {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// rollingStd computes the trailing sample standard deviation.
func rollingStd(vals []float64, window int) []float64 {
	out := undefinedSlice(len(vals))
	if window <= 1 || len(vals) < window {
		return out
	}
	for i := window - 1; i < len(vals); i++ {
		sum, sum2 := 0.0, 0.0
		ok := true
		for j := i - window + 1; j <= i; j++ {
			if !models.Defined(vals[j]) {
				ok = false
				break
			}
			sum += vals[j]
			sum2 += vals[j] * vals[j]
		}
		if !ok {
			continue
		}
		n := float64(window)
		mean := sum / n
		variance := (sum2 - n*mean*mean) / (n - 1)
		if variance < 0 {
			variance = 0
		}
		out[i] = math.Sqrt(variance)
	}
	return out
}

// ema computes an exponential moving average with alpha = 2/(span+1),
// weighting the full history so early rows are defined immediately.
func ema(vals []float64, span int) []float64 {
	out := undefinedSlice(len(vals))
	if len(vals) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	decay := 1.0 - alpha

	num, den := 0.0, 0.0
	for i, v := range vals {
		if !models.Defined(v) {
			// hold weights; an undefined prefix stays undefined
			continue
		}
		num = v + decay*num
		den = 1 + decay*den
		out[i] = num / den
	}
	return out
}

// relativeStrength computes RSI over a trailing delta window.
//
// Zero-loss convention: average loss 0 with positive average gain maps
// to RSI 100; a fully flat window (both averages 0) stays undefined.
func relativeStrength(closes []float64, window int) []float64 {
	out := undefinedSlice(len(closes))
	if len(closes) <= window {
		return out
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	for i := window; i < len(closes); i++ {
		var gainSum, lossSum float64
		for j := i - window + 1; j <= i; j++ {
			gainSum += gains[j]
			lossSum += losses[j]
		}
		avgGain := gainSum / float64(window)
		avgLoss := lossSum / float64(window)

		switch {
		case avgLoss == 0 && avgGain == 0:
			// flat window, 0/0
		case avgLoss == 0:
			out[i] = 100
		default:
			rs := avgGain / avgLoss
			out[i] = 100 - 100/(1+rs)
		}
	}
	return out
}

// simpleReturns computes (close[i] - close[i-lag]) / close[i-lag].
func simpleReturns(closes []float64, lag int) []float64 {
	out := undefinedSlice(len(closes))
	for i := lag; i < len(closes); i++ {
		prev := closes[i-lag]
		if prev == 0 {
			continue
		}
		out[i] = (closes[i] - prev) / prev
	}
	return out
}

func undefinedSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = models.Undefined
	}
	return out
}
