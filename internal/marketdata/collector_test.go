package marketdata

import (
	"testing"
	"time"

	"MarketWatch/internal/domain/models"
)

func tick(symbol string, at time.Time, price, volume float64) *models.Tick {
	return &models.Tick{Symbol: symbol, Timestamp: at.Unix(), Price: price, Volume: volume}
}

func TestAggregatorSealsOnIntervalRollover(t *testing.T) {
	agg := NewAggregator(time.Minute, 100)
	t0 := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

	agg.Add(tick("AAPL", t0.Add(5*time.Second), 100, 10))
	agg.Add(tick("AAPL", t0.Add(20*time.Second), 104, 5))
	agg.Add(tick("AAPL", t0.Add(40*time.Second), 98, 5))
	agg.Add(tick("AAPL", t0.Add(59*time.Second), 102, 10))

	// Still in-progress: nothing sealed yet.
	if n := agg.Series("AAPL").Len(); n != 0 {
		t.Fatalf("sealed %d bars before rollover", n)
	}

	// First tick of the next minute seals the bar.
	agg.Add(tick("AAPL", t0.Add(65*time.Second), 103, 7))
	series := agg.Series("AAPL")
	if series.Len() != 1 {
		t.Fatalf("sealed %d bars, want 1", series.Len())
	}
	bar := series.Bars[0]
	if bar.Open != 100 || bar.High != 104 || bar.Low != 98 || bar.Close != 102 {
		t.Fatalf("OHLC %+v", bar)
	}
	if bar.Volume != 30 {
		t.Fatalf("volume %v, want 30", bar.Volume)
	}
	if !bar.Timestamp.Equal(t0) {
		t.Fatalf("bucket %v, want %v", bar.Timestamp, t0)
	}
}

func TestAggregatorIgnoresLateTicks(t *testing.T) {
	agg := NewAggregator(time.Minute, 100)
	t0 := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

	agg.Add(tick("MSFT", t0.Add(10*time.Second), 50, 1))
	agg.Add(tick("MSFT", t0.Add(70*time.Second), 51, 1))
	// From the already-sealed first minute.
	agg.Add(tick("MSFT", t0.Add(30*time.Second), 999, 1))

	series := agg.Series("MSFT")
	if series.Len() != 1 {
		t.Fatalf("sealed %d bars, want 1", series.Len())
	}
	if series.Bars[0].High == 999 {
		t.Fatalf("late tick mutated sealed bar")
	}
}

func TestAggregatorBoundsHistory(t *testing.T) {
	agg := NewAggregator(time.Minute, 3)
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		agg.Add(tick("SPY", t0.Add(time.Duration(i)*time.Minute), float64(100+i), 1))
	}

	series := agg.Series("SPY")
	if series.Len() != 3 {
		t.Fatalf("kept %d bars, want 3", series.Len())
	}
	// Oldest retained bar is from minute 6 (minute 9 is in progress).
	if !series.Bars[0].Timestamp.Equal(t0.Add(6 * time.Minute)) {
		t.Fatalf("oldest bar at %v", series.Bars[0].Timestamp)
	}
}

func TestAggregatorIsolatesSymbols(t *testing.T) {
	agg := NewAggregator(time.Minute, 100)
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	agg.Add(tick("AAPL", t0, 100, 1))
	agg.Add(tick("MSFT", t0, 50, 1))
	agg.Add(tick("AAPL", t0.Add(time.Minute), 101, 1))

	if agg.Series("AAPL").Len() != 1 {
		t.Fatalf("AAPL sealed %d", agg.Series("AAPL").Len())
	}
	if agg.Series("MSFT").Len() != 0 {
		t.Fatalf("MSFT sealed %d", agg.Series("MSFT").Len())
	}
}
