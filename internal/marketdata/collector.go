package marketdata

import (
	"context"
	"sync"
	"time"

	"MarketWatch/internal/domain/models"
	"MarketWatch/internal/domain/repository"
	"MarketWatch/pkg/logger"
)

// Aggregator folds live ticks into fixed-interval OHLCV bars per
// symbol. A bar is sealed when the first tick of the next interval
// arrives; sealed bars are kept in a bounded per-symbol window.
type Aggregator struct {
	interval time.Duration
	maxBars  int

	mu      sync.RWMutex
	sealed  map[string][]models.PriceBar
	current map[string]*models.PriceBar
}

// NewAggregator creates an aggregator with the given bar interval and
// per-symbol history bound.
func NewAggregator(interval time.Duration, maxBars int) *Aggregator {
	if interval <= 0 {
		interval = time.Minute
	}
	if maxBars <= 0 {
		maxBars = 500
	}
	return &Aggregator{
		interval: interval,
		maxBars:  maxBars,
		sealed:   make(map[string][]models.PriceBar),
		current:  make(map[string]*models.PriceBar),
	}
}

// Add folds one tick into its symbol's current bar.
func (a *Aggregator) Add(t *models.Tick) {
	if t == nil {
		return
	}
	bucket := time.Unix(t.Timestamp, 0).UTC().Truncate(a.interval)

	a.mu.Lock()
	defer a.mu.Unlock()

	cur := a.current[t.Symbol]
	if cur == nil || bucket.After(cur.Timestamp) {
		if cur != nil {
			a.seal(t.Symbol, *cur)
		}
		a.current[t.Symbol] = &models.PriceBar{
			Timestamp: bucket,
			Open:      t.Price,
			High:      t.Price,
			Low:       t.Price,
			Close:     t.Price,
			Volume:    t.Volume,
		}
		return
	}
	if bucket.Before(cur.Timestamp) {
		// late tick from a sealed interval, ignore
		return
	}

	if t.Price > cur.High {
		cur.High = t.Price
	}
	if t.Price < cur.Low {
		cur.Low = t.Price
	}
	cur.Close = t.Price
	cur.Volume += t.Volume
}

func (a *Aggregator) seal(symbol string, bar models.PriceBar) {
	bars := append(a.sealed[symbol], bar)
	if len(bars) > a.maxBars {
		bars = bars[len(bars)-a.maxBars:]
	}
	a.sealed[symbol] = bars
}

// Series returns the sealed bars for a symbol as a Series, ascending by
// timestamp. The in-progress bar is excluded.
func (a *Aggregator) Series(symbol string) models.Series {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := models.Series{Symbol: symbol}
	out.Bars = append(out.Bars, a.sealed[symbol]...)
	return out
}

// Collector pumps a tick stream into the aggregator, reconnecting on
// read errors.
type Collector struct {
	stream  repository.TickStream
	agg     *Aggregator
	metrics repository.Metrics
	log     *logger.Logger
}

// NewCollector creates a collector over a stream.
func NewCollector(log *logger.Logger, stream repository.TickStream, agg *Aggregator, metrics repository.Metrics) *Collector {
	if log == nil {
		log = logger.Nop()
	}
	return &Collector{stream: stream, agg: agg, metrics: metrics, log: log}
}

// IsConnected reports the stream state.
func (c *Collector) IsConnected() bool { return c.stream.IsConnected() }

// Bars returns the sealed intraday bars aggregated for a symbol.
func (c *Collector) Bars(symbol string) models.Series { return c.agg.Series(symbol) }

// Start connects, subscribes and launches the consume loop.
func (c *Collector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	ticks, errs := c.stream.Read(ctx)
	go c.consume(ctx, ticks, errs)
	return nil
}

func (c *Collector) consume(ctx context.Context, ticks <-chan *models.Tick, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errs:
			if err != nil {
				c.log.Warn("stream error, reconnecting", logger.Error(err))
				if rerr := c.stream.Reconnect(ctx); rerr != nil {
					c.log.Error("stream reconnect failed", logger.Error(rerr))
					return
				}
				ticks, errs = c.stream.Read(ctx)
			}
		case t := <-ticks:
			if t == nil {
				continue
			}
			c.agg.Add(t)
			if c.metrics != nil {
				c.metrics.RecordLastPrice(t.Symbol, t.Price)
			}
		}
	}
}

// Stop closes the stream.
func (c *Collector) Stop() error { return c.stream.Close() }
