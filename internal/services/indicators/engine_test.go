package indicators

import (
	"math"
	"testing"
	"time"

	"MarketWatch/internal/domain/models"
)

func makeSeries(closes []float64) models.Series {
	s := models.Series{Symbol: "BOSCHLTD.BSE"}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		s.Bars = append(s.Bars, models.PriceBar{
			Timestamp: base.AddDate(0, 0, i),
			Open:      c,
			High:      c * 1.01,
			Low:       c * 0.99,
			Close:     c,
			Volume:    100000,
		})
	}
	return s
}

func TestComputeAlignment(t *testing.T) {
	closes := []float64{100, 101, 102, 103, 104, 105}
	series := makeSeries(closes)

	rows := Compute(series)
	if len(rows) != len(closes) {
		t.Fatalf("expected %d rows, got %d", len(closes), len(rows))
	}
	for i, r := range rows {
		if r.Close != closes[i] {
			t.Fatalf("row %d: close %v != input %v", i, r.Close, closes[i])
		}
		if !r.Timestamp.Equal(series.Bars[i].Timestamp) {
			t.Fatalf("row %d: timestamp mismatch", i)
		}
	}
}

func TestComputeEmptySeries(t *testing.T) {
	rows := Compute(models.Series{Symbol: "X"})
	if len(rows) != 0 {
		t.Fatalf("expected empty result, got %d rows", len(rows))
	}
}

func TestMovingAverageWindows(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 1000 + float64(i)
	}
	rows := Compute(makeSeries(closes))

	if models.Defined(rows[3].MA5) {
		t.Fatalf("MA5 defined before 5 bars")
	}
	if !models.Defined(rows[4].MA5) {
		t.Fatalf("MA5 undefined at bar 5")
	}
	// mean of 1000..1004
	if got := rows[4].MA5; math.Abs(got-1002) > 1e-9 {
		t.Fatalf("MA5 = %v, want 1002", got)
	}
	if models.Defined(rows[18].MA20) || !models.Defined(rows[19].MA20) {
		t.Fatalf("MA20 window boundary wrong")
	}
	if models.Defined(rows[48].MA50) || !models.Defined(rows[49].MA50) {
		t.Fatalf("MA50 window boundary wrong")
	}
}

func TestNoLookahead(t *testing.T) {
	closes := []float64{
		100, 102, 98, 103, 105, 104, 108, 110, 107, 111,
		113, 109, 114, 116, 112, 118, 120, 117, 121, 123,
		119, 124, 126, 122, 128,
	}
	short := Compute(makeSeries(closes))
	long := Compute(makeSeries(append(append([]float64{}, closes...), 999)))

	for i := range short {
		checks := map[string][2]float64{
			"MA20":       {short[i].MA20, long[i].MA20},
			"RSI":        {short[i].RSI, long[i].RSI},
			"MACD":       {short[i].MACD, long[i].MACD},
			"MACDSignal": {short[i].MACDSignal, long[i].MACDSignal},
			"Volatility": {short[i].Volatility, long[i].Volatility},
			"BBUpper":    {short[i].BBUpper, long[i].BBUpper},
		}
		for name, pair := range checks {
			a, b := pair[0], pair[1]
			if models.Defined(a) != models.Defined(b) {
				t.Fatalf("row %d %s: definedness changed after append", i, name)
			}
			if models.Defined(a) && math.Abs(a-b) > 1e-12 {
				t.Fatalf("row %d %s: %v changed to %v after append", i, name, a, b)
			}
		}
	}
}

func TestRSIBounds(t *testing.T) {
	// Alternating noisy walk keeps both gains and losses in every window.
	closes := make([]float64, 80)
	closes[0] = 1000
	for i := 1; i < len(closes); i++ {
		if i%3 == 0 {
			closes[i] = closes[i-1] - float64(i%7+1)
		} else {
			closes[i] = closes[i-1] + float64(i%5+1)
		}
	}
	rows := Compute(makeSeries(closes))

	defined := 0
	for i, r := range rows {
		if !models.Defined(r.RSI) {
			continue
		}
		defined++
		if r.RSI < 0 || r.RSI > 100 {
			t.Fatalf("row %d: RSI %v out of [0,100]", i, r.RSI)
		}
	}
	if defined == 0 {
		t.Fatalf("no defined RSI values")
	}
	if models.Defined(rows[13].RSI) {
		t.Fatalf("RSI defined before 14 deltas")
	}
	if !models.Defined(rows[14].RSI) {
		t.Fatalf("RSI undefined at first full delta window")
	}
}

func TestRSIZeroLossConvention(t *testing.T) {
	// Monotonic rise: zero average loss, positive gain.
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 1000 + float64(i)*5
	}
	rows := Compute(makeSeries(closes))
	if got := rows[19].RSI; got != 100 {
		t.Fatalf("RSI = %v, want 100 for zero-loss window", got)
	}

	// Fully flat window: 0/0 stays undefined.
	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 1000
	}
	rows = Compute(makeSeries(flat))
	if models.Defined(rows[19].RSI) {
		t.Fatalf("RSI should be undefined for a flat window")
	}
}

func TestBollingerBands(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 1000 + float64(i%2)*10 // oscillate 1000/1010
	}
	rows := Compute(makeSeries(closes))

	r := rows[20]
	if !models.Defined(r.BBUpper) || !models.Defined(r.BBLower) {
		t.Fatalf("bands undefined with 21 bars")
	}
	if r.BBUpper <= r.BBMiddle || r.BBLower >= r.BBMiddle {
		t.Fatalf("band ordering wrong: lower=%v middle=%v upper=%v", r.BBLower, r.BBMiddle, r.BBUpper)
	}
	if math.Abs((r.BBUpper-r.BBMiddle)-(r.BBMiddle-r.BBLower)) > 1e-9 {
		t.Fatalf("bands not symmetric around middle")
	}
}

func TestMACDRelation(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 1000 + 3*float64(i)
	}
	rows := Compute(makeSeries(closes))
	for i, r := range rows {
		if !models.Defined(r.MACD) || !models.Defined(r.MACDSignal) {
			t.Fatalf("row %d: MACD undefined", i)
		}
		if math.Abs(r.MACDHistogram-(r.MACD-r.MACDSignal)) > 1e-12 {
			t.Fatalf("row %d: histogram != macd - signal", i)
		}
	}
	// Steady uptrend: fast EMA above slow EMA once the trend settles.
	if rows[39].MACD <= 0 {
		t.Fatalf("MACD = %v, want > 0 in an uptrend", rows[39].MACD)
	}
}

func TestVolumeRatio(t *testing.T) {
	series := makeSeries(make([]float64, 30))
	for i := range series.Bars {
		series.Bars[i].Close = 1000
		series.Bars[i].Volume = 100000
	}
	series.Bars[25].Volume = 500000

	rows := Compute(series)
	if models.Defined(rows[10].VolumeRatio) {
		t.Fatalf("volume ratio defined before 20 bars")
	}
	got := rows[25].VolumeRatio
	if !models.Defined(got) || got < 4 {
		t.Fatalf("volume ratio = %v, want spike > 4x", got)
	}
}

func TestVolatilityWindow(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 1000 * math.Pow(1.01, float64(i%2))
	}
	rows := Compute(makeSeries(closes))
	if models.Defined(rows[19].Volatility) {
		t.Fatalf("volatility defined without 20 returns")
	}
	if !models.Defined(rows[20].Volatility) {
		t.Fatalf("volatility undefined at first full return window")
	}
	if rows[20].Volatility <= 0 {
		t.Fatalf("volatility = %v, want > 0", rows[20].Volatility)
	}
}
