// Package monitor orchestrates the analysis sweep: fetch a series,
// compute indicators, detect anomalies, report and alert.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MarketWatch/internal/domain/models"
	"MarketWatch/internal/domain/repository"
	"MarketWatch/internal/errorhandler"
	"MarketWatch/internal/services/anomaly"
	"MarketWatch/internal/services/indicators"
	"MarketWatch/pkg/logger"
)

// Options configures a Monitor.
type Options struct {
	Symbols      []string
	Period       string
	Interval     string
	ScanInterval time.Duration
	Thresholds   models.Thresholds
}

func (o Options) withDefaults() Options {
	if o.Period == "" {
		o.Period = "3mo"
	}
	if o.Interval == "" {
		o.Interval = "1d"
	}
	if o.ScanInterval <= 0 {
		o.ScanInterval = 15 * time.Minute
	}
	return o
}

// Monitor runs periodic analysis sweeps over the configured symbols.
type Monitor struct {
	opts     Options
	source   repository.Source
	notifier repository.Notifier
	store    repository.SnapshotStore // optional
	errs     *errorhandler.Handler
	metrics  repository.Metrics
	log      *logger.Logger

	mu      sync.RWMutex
	reports map[string]*Report
	summary OverallSummary

	now func() time.Time // test hook
}

// New creates a Monitor. The snapshot store is optional; everything else
// is required.
func New(log *logger.Logger, source repository.Source, notifier repository.Notifier,
	errs *errorhandler.Handler, metrics repository.Metrics, opts Options) *Monitor {
	if log == nil {
		log = logger.Nop()
	}
	return &Monitor{
		opts:     opts.withDefaults(),
		source:   source,
		notifier: notifier,
		errs:     errs,
		metrics:  metrics,
		log:      log,
		reports:  make(map[string]*Report),
		now:      time.Now,
	}
}

// SetSnapshotStore attaches a snapshot store. Must be called before Run.
func (m *Monitor) SetSnapshotStore(store repository.SnapshotStore) { m.store = store }

// Run executes sweeps on the scan interval until ctx is cancelled. The
// first sweep runs immediately.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.opts.ScanInterval)
	defer ticker.Stop()

	m.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep analyzes every configured symbol and refreshes the overall
// summary. A symbol that fails is reported and skipped; the sweep
// continues.
func (m *Monitor) Sweep(ctx context.Context) *SweepResult {
	start := m.now()
	result := &SweepResult{
		Timestamp: start,
		Reports:   make(map[string]*Report),
	}

	for _, symbol := range m.opts.Symbols {
		report, err := m.Analyze(ctx, symbol)
		if err != nil {
			m.log.Warn("symbol analysis skipped",
				logger.String("symbol", symbol), logger.Error(err))
			continue
		}
		result.Symbols = append(result.Symbols, symbol)
		result.Reports[symbol] = report
	}
	result.Summary = buildSummary(result.Reports)

	m.mu.Lock()
	for s, r := range result.Reports {
		m.reports[s] = r
	}
	m.summary = result.Summary
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordLatency("sweep", m.now().Sub(start).Seconds())
	}
	m.log.Info("analysis sweep complete",
		logger.Int("symbols", len(result.Symbols)),
		logger.Int("alerts", result.Summary.TotalAlerts),
		logger.String("risk", result.Summary.RiskAssessment))

	return result
}

// Analyze runs the full pipeline for one symbol.
func (m *Monitor) Analyze(ctx context.Context, symbol string) (*Report, error) {
	series, err := m.fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if series.Empty() {
		return nil, fmt.Errorf("no data for %s", symbol)
	}

	rows := indicators.Compute(series)

	var latest, previous *models.IndicatorRow
	latest = &rows[len(rows)-1]
	if len(rows) > 1 {
		previous = &rows[len(rows)-2]
	}
	anomalies := anomaly.Detect(latest, previous, m.opts.Thresholds)

	report := buildReport(symbol, rows, anomalies, m.now())

	for _, a := range anomalies {
		if m.metrics != nil {
			m.metrics.RecordAnomaly(symbol, string(a.Kind))
		}
		m.dispatchAnomaly(ctx, symbol, a)
	}

	if m.store != nil {
		if err := m.store.StoreSnapshot(ctx, symbol, rows); err != nil && m.errs != nil {
			m.errs.Handle(err, models.ErrorContext{
				Component: "monitor",
				Operation: "store_snapshot",
				Metadata:  map[string]any{"symbol": symbol},
			})
		}
	}

	return report, nil
}

// fetch retrieves the series with retries; terminal failures flow
// through the error tracker.
func (m *Monitor) fetch(ctx context.Context, symbol string) (models.Series, error) {
	if m.errs == nil {
		return m.source.Fetch(ctx, symbol, m.opts.Period, m.opts.Interval)
	}
	return errorhandler.RetryValue(ctx, m.errs, errorhandler.RetryOptions{
		Component: "monitor",
		Operation: "fetch_" + symbol,
	}, func(ctx context.Context) (models.Series, error) {
		return m.source.Fetch(ctx, symbol, m.opts.Period, m.opts.Interval)
	})
}

func (m *Monitor) dispatchAnomaly(ctx context.Context, symbol string, a models.AnomalyAlert) {
	if m.notifier == nil {
		return
	}
	alert := &models.Alert{
		Type:      models.AlertMarket,
		Severity:  a.Severity,
		Title:     fmt.Sprintf("Market Alert: %s - %s", symbol, a.Kind),
		Message:   a.Message,
		Timestamp: m.now(),
		Metadata: map[string]any{
			"symbol":    symbol,
			"kind":      string(a.Kind),
			"observed":  a.Observed,
			"threshold": a.Threshold,
		},
	}
	m.notifier.Send(ctx, alert)
}

// Report returns the last report for a symbol.
func (m *Monitor) Report(symbol string) (*Report, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[symbol]
	return r, ok
}

// Summary returns the last sweep's overall summary.
func (m *Monitor) Summary() OverallSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.summary
}
