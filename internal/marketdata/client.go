// Package marketdata provides the price sources: a historical chart API
// client and a streaming websocket feed with tick-to-bar aggregation.
package marketdata

import (
	"context"
	"fmt"
	"time"

	"MarketWatch/internal/domain/models"
	"MarketWatch/internal/domain/repository"
	"MarketWatch/pkg/http"
	"MarketWatch/pkg/logger"
)

const defaultChartBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// ClientOption configures the chart client.
type ClientOption func(*Client)

// WithBaseURL overrides the chart API endpoint.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// Client fetches historical OHLCV series from a chart API. It
// implements repository.Source.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

// NewClient creates a chart API source.
func NewClient(log *logger.Logger, opts ...ClientOption) repository.Source {
	if log == nil {
		log = logger.Nop()
	}
	c := &Client{
		baseURL: defaultChartBaseURL,
		http:    http.NewClient(http.WithTimeout(15 * time.Second)),
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch retrieves a series for the symbol. Rows with missing close
// prices are skipped; an empty series is a valid result.
func (c *Client) Fetch(ctx context.Context, symbol, period, interval string) (models.Series, error) {
	series := models.Series{Symbol: symbol}

	c.log.Info("fetching market data",
		logger.String("symbol", symbol),
		logger.String("period", period),
		logger.String("interval", interval))

	var resp chartResponse
	err := c.http.SendAndParse(ctx, &http.RequestOptions{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/%s", c.baseURL, symbol),
		QueryParams: map[string][]string{
			"range":    {period},
			"interval": {interval},
		},
		Headers: map[string]string{"User-Agent": "marketwatch/1.0"},
	}, &resp)
	if err != nil {
		return series, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		return series, fmt.Errorf("fetch %s: %s: %s",
			symbol, resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		c.log.Warn("no data returned", logger.String("symbol", symbol))
		return series, nil
	}

	result := resp.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	for i, ts := range result.Timestamp {
		if deref(quote.Close, i) == nil {
			continue
		}
		bar := models.PriceBar{
			Timestamp: time.Unix(ts, 0).UTC(),
			Close:     *deref(quote.Close, i),
		}
		if v := deref(quote.Open, i); v != nil {
			bar.Open = *v
		}
		if v := deref(quote.High, i); v != nil {
			bar.High = *v
		}
		if v := deref(quote.Low, i); v != nil {
			bar.Low = *v
		}
		if v := deref(quote.Volume, i); v != nil {
			bar.Volume = *v
		}
		series.Bars = append(series.Bars, bar)
	}

	c.log.Info("fetched market data",
		logger.String("symbol", symbol),
		logger.Int("bars", series.Len()))
	return series, nil
}

func deref(vals []*float64, i int) *float64 {
	if i >= len(vals) {
		return nil
	}
	return vals[i]
}
