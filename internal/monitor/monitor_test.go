package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"MarketWatch/internal/domain/models"
	"MarketWatch/pkg/logger"
)

type fakeSource struct {
	series map[string]models.Series
	errs   map[string]error
	calls  int
}

func (f *fakeSource) Fetch(_ context.Context, symbol, _, _ string) (models.Series, error) {
	f.calls++
	if err := f.errs[symbol]; err != nil {
		return models.Series{Symbol: symbol}, err
	}
	return f.series[symbol], nil
}

type captureNotifier struct {
	mu     sync.Mutex
	alerts []*models.Alert
}

func (c *captureNotifier) Send(_ context.Context, alert *models.Alert) map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, alert)
	return map[string]bool{"test": true}
}

func risingSeries(symbol string, n int) models.Series {
	s := models.Series{Symbol: symbol}
	t0 := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		price := 100 + float64(i)
		s.Bars = append(s.Bars, models.PriceBar{
			Timestamp: t0.AddDate(0, 0, i),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    1_000_000,
		})
	}
	return s
}

func TestAnalyzeBullishTrend(t *testing.T) {
	src := &fakeSource{series: map[string]models.Series{
		"AAPL": risingSeries("AAPL", 60),
	}}
	notifier := &captureNotifier{}
	m := New(logger.Nop(), src, notifier, nil, nil, Options{Symbols: []string{"AAPL"}})

	report, err := m.Analyze(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if report.Technical.Trend != "bullish" {
		t.Fatalf("trend %s, want bullish", report.Technical.Trend)
	}
	if report.Technical.MACDSignal != "bullish" {
		t.Fatalf("macd signal %s, want bullish", report.Technical.MACDSignal)
	}
	// A monotonically rising series pegs RSI at 100.
	if report.Technical.RSISignal != "overbought" {
		t.Fatalf("rsi signal %s, want overbought", report.Technical.RSISignal)
	}
	if report.Performance.CurrentPrice != 159 {
		t.Fatalf("current price %v", report.Performance.CurrentPrice)
	}

	joined := strings.Join(report.Recommendations, "\n")
	if !strings.Contains(joined, "bullish trend detected") {
		t.Fatalf("recommendations missing trend advice: %v", report.Recommendations)
	}
	if !strings.Contains(joined, "taking profits") {
		t.Fatalf("recommendations missing RSI advice: %v", report.Recommendations)
	}
}

func TestAnalyzeDispatchesAnomalyAlerts(t *testing.T) {
	// Flat then a 12 percent jump on the final bar.
	s := models.Series{Symbol: "TSLA"}
	t0 := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		price := 1000.0
		if i == 29 {
			price = 1120.0
		}
		s.Bars = append(s.Bars, models.PriceBar{
			Timestamp: t0.AddDate(0, 0, i),
			Open:      price, High: price, Low: price, Close: price,
			Volume: 500_000,
		})
	}

	src := &fakeSource{series: map[string]models.Series{"TSLA": s}}
	notifier := &captureNotifier{}
	m := New(logger.Nop(), src, notifier, nil, nil, Options{Symbols: []string{"TSLA"}})

	report, err := m.Analyze(context.Background(), "TSLA")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	var priceAlerts []*models.Alert
	notifier.mu.Lock()
	for _, a := range notifier.alerts {
		if a.Metadata["kind"] == string(models.AnomalyPriceChange) {
			priceAlerts = append(priceAlerts, a)
		}
	}
	notifier.mu.Unlock()

	if len(priceAlerts) != 1 {
		t.Fatalf("%d price change alerts dispatched, want 1", len(priceAlerts))
	}
	a := priceAlerts[0]
	if a.Type != models.AlertMarket {
		t.Fatalf("alert type %s", a.Type)
	}
	if a.Severity != models.SeverityHigh {
		t.Fatalf("alert severity %s, want high for a 12%% move", a.Severity)
	}
	if a.Metadata["symbol"] != "TSLA" {
		t.Fatalf("alert metadata %v", a.Metadata)
	}
	if len(report.Anomalies) == 0 {
		t.Fatalf("report carries no anomalies")
	}
}

func TestAnalyzeEmptySeries(t *testing.T) {
	src := &fakeSource{series: map[string]models.Series{"EMPTY": {Symbol: "EMPTY"}}}
	m := New(logger.Nop(), src, &captureNotifier{}, nil, nil, Options{})

	if _, err := m.Analyze(context.Background(), "EMPTY"); err == nil {
		t.Fatalf("empty series did not error")
	}
}

func TestSweepSkipsFailingSymbol(t *testing.T) {
	src := &fakeSource{
		series: map[string]models.Series{"AAPL": risingSeries("AAPL", 60)},
		errs:   map[string]error{"DOWN": errors.New("upstream unavailable")},
	}
	m := New(logger.Nop(), src, &captureNotifier{}, nil, nil, Options{
		Symbols: []string{"AAPL", "DOWN"},
	})

	result := m.Sweep(context.Background())

	if len(result.Symbols) != 1 || result.Symbols[0] != "AAPL" {
		t.Fatalf("symbols analyzed: %v", result.Symbols)
	}
	if result.Summary.TotalSymbols != 1 {
		t.Fatalf("summary symbols %d", result.Summary.TotalSymbols)
	}
	if _, ok := m.Report("AAPL"); !ok {
		t.Fatalf("report for AAPL not cached")
	}
	if _, ok := m.Report("DOWN"); ok {
		t.Fatalf("failing symbol produced a report")
	}
}

func TestSweepSummaryRisk(t *testing.T) {
	src := &fakeSource{series: map[string]models.Series{
		"AAPL": risingSeries("AAPL", 60),
	}}
	m := New(logger.Nop(), src, &captureNotifier{}, nil, nil, Options{Symbols: []string{"AAPL"}})

	result := m.Sweep(context.Background())
	// One rsi_overbought anomaly: below the multi-alert cutoff.
	if result.Summary.TotalAlerts != 1 {
		t.Fatalf("total alerts %d, want 1", result.Summary.TotalAlerts)
	}
	if result.Summary.RiskAssessment != "low" {
		t.Fatalf("risk %s, want low", result.Summary.RiskAssessment)
	}
	if got := m.Summary(); got.TotalAlerts != result.Summary.TotalAlerts {
		t.Fatalf("cached summary mismatch: %+v", got)
	}
}
