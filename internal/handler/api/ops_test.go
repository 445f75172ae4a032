package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"MarketWatch/internal/domain/models"
	"MarketWatch/internal/errorhandler"
	"MarketWatch/internal/marketdata"
	"MarketWatch/internal/monitor"
	"MarketWatch/pkg/logger"
)

type noopNotifier struct{}

func (noopNotifier) Send(context.Context, *models.Alert) map[string]bool {
	return map[string]bool{}
}

type staticSource struct{ series models.Series }

func (s staticSource) Fetch(context.Context, string, string, string) (models.Series, error) {
	return s.series, nil
}

func newTestOps(t *testing.T) (*OpsHandler, *errorhandler.Handler, *echo.Echo) {
	t.Helper()
	errs := errorhandler.New(logger.Nop(), noopNotifier{}, nil, errorhandler.Options{
		PatternsPath: filepath.Join(t.TempDir(), "patterns.json"),
	})
	mon := monitor.New(logger.Nop(), staticSource{}, noopNotifier{}, nil, nil, monitor.Options{})
	h := NewOpsHandler(logger.Nop(), errs, mon, nil, nil)
	e := echo.New()
	h.RegisterRoutes(e)
	return h, errs, e
}

func TestErrorStatsEndpoint(t *testing.T) {
	_, errs, e := newTestOps(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errs.Start(ctx)
	errs.Handle(errors.New("database is locked"), models.ErrorContext{Component: "warehouse"})

	req := httptest.NewRequest(http.MethodGet, "/api/errors/stats", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body struct {
		Status int                `json:"status"`
		Data   errorhandler.Stats `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != http.StatusOK {
		t.Fatalf("envelope status %d", body.Status)
	}
}

func TestResolveEndpoint(t *testing.T) {
	_, errs, e := newTestOps(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errs.Start(ctx)

	id := errs.Handle(errors.New("needs a human"), models.ErrorContext{})

	// Wait for the consumer to store the record.
	waitFor(t, func() bool {
		_, ok := errs.Record(id)
		return ok
	})

	body := `{"resolution":"restarted","resolved_by":"ops"}`
	req := httptest.NewRequest(http.MethodPost, "/api/errors/"+id+"/resolve", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var envelope struct {
		Status int               `json:"status"`
		Data   map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Status != http.StatusOK || envelope.Data["status"] != "resolved" {
		t.Fatalf("resolve response: %+v", envelope)
	}

	// Second resolve reports not found. The envelope carries a plain
	// string in data here, so only the status is decoded.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/errors/"+id+"/resolve", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	e.ServeHTTP(rec, req)
	var notFound struct {
		Status int             `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &notFound); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if notFound.Status != http.StatusNotFound {
		t.Fatalf("second resolve status %d", notFound.Status)
	}
}

func TestErrorRecordsEndpoint(t *testing.T) {
	_, errs, e := newTestOps(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errs.Start(ctx)

	id := errs.Handle(errors.New("load step timed out"), models.ErrorContext{Component: "loader"})
	waitFor(t, func() bool {
		_, ok := errs.Record(id)
		return ok
	})

	req := httptest.NewRequest(http.MethodGet, "/api/errors/records?limit=10", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var envelope struct {
		Status int                  `json:"status"`
		Data   []models.ErrorRecord `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Status != http.StatusOK {
		t.Fatalf("envelope status %d", envelope.Status)
	}
	if len(envelope.Data) != 1 || envelope.Data[0].ID != id {
		t.Fatalf("records: %+v", envelope.Data)
	}

	// A since filter in the future excludes everything.
	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	req = httptest.NewRequest(http.MethodGet, "/api/errors/records?since="+future, nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(envelope.Data) != 0 {
		t.Fatalf("future since returned %d records", len(envelope.Data))
	}
}

func TestResolveValidation(t *testing.T) {
	_, _, e := newTestOps(t)

	req := httptest.NewRequest(http.MethodPost, "/api/errors/some-id/resolve", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var envelope struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Status != http.StatusBadRequest {
		t.Fatalf("missing fields accepted: %d", envelope.Status)
	}
}

func TestSymbolReportNotFound(t *testing.T) {
	_, _, e := newTestOps(t)

	req := httptest.NewRequest(http.MethodGet, "/api/monitor/UNKNOWN", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var envelope struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Status != http.StatusNotFound {
		t.Fatalf("unknown symbol status %d", envelope.Status)
	}
}

func TestStreamBarsEndpoint(t *testing.T) {
	agg := marketdata.NewAggregator(time.Minute, 10)
	base := time.Date(2026, 8, 1, 14, 30, 0, 0, time.UTC).Unix()
	agg.Add(&models.Tick{Symbol: "AAPL", Price: 101, Volume: 5, Timestamp: base})
	agg.Add(&models.Tick{Symbol: "AAPL", Price: 103, Volume: 2, Timestamp: base + 10})
	// first tick of the next interval seals the previous bar
	agg.Add(&models.Tick{Symbol: "AAPL", Price: 102, Volume: 1, Timestamp: base + 70})
	collector := marketdata.NewCollector(logger.Nop(), nil, agg, nil)

	errs := errorhandler.New(logger.Nop(), noopNotifier{}, nil, errorhandler.Options{
		PatternsPath: filepath.Join(t.TempDir(), "patterns.json"),
	})
	mon := monitor.New(logger.Nop(), staticSource{}, noopNotifier{}, nil, nil, monitor.Options{})
	h := NewOpsHandler(logger.Nop(), errs, mon, collector, nil)
	e := echo.New()
	h.RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodGet, "/api/stream/AAPL", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body struct {
		Data models.Series `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data.Bars) != 1 {
		t.Fatalf("bars: %d", len(body.Data.Bars))
	}
	bar := body.Data.Bars[0]
	if bar.Open != 101 || bar.High != 103 || bar.Close != 103 || bar.Volume != 7 {
		t.Fatalf("bar: %+v", bar)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/stream/MSFT", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var envelope struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Status != http.StatusNotFound {
		t.Fatalf("empty symbol status %d", envelope.Status)
	}
}

func TestStreamBarsDisabled(t *testing.T) {
	_, _, e := newTestOps(t)

	req := httptest.NewRequest(http.MethodGet, "/api/stream/AAPL", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var envelope struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Status != http.StatusNotFound {
		t.Fatalf("disabled stream status %d", envelope.Status)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met")
}
