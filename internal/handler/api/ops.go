package api

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"MarketWatch/internal/errorhandler"
	"MarketWatch/internal/marketdata"
	"MarketWatch/internal/monitor"
	xhttp "MarketWatch/pkg/http"
	xlogger "MarketWatch/pkg/logger"
)

// HealthChecker reports readiness of one dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// OpsHandler exposes the operational HTTP surface: error tracker
// inspection, resolution, and per-symbol analysis reports.
type OpsHandler struct {
	logger    *xlogger.Logger
	errs      *errorhandler.Handler
	monitor   *monitor.Monitor
	collector *marketdata.Collector
	checks    map[string]HealthChecker
}

// NewOpsHandler creates the ops handler. collector and checks may be nil.
func NewOpsHandler(logger *xlogger.Logger, errs *errorhandler.Handler, mon *monitor.Monitor, collector *marketdata.Collector, checks map[string]HealthChecker) *OpsHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &OpsHandler{logger: logger, errs: errs, monitor: mon, collector: collector, checks: checks}
}

func (h *OpsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/errors/stats", h.ErrorStats)
	g.GET("/errors/patterns", h.ErrorPatterns)
	g.GET("/errors/records", h.ErrorRecords)
	g.POST("/errors/:id/resolve", h.ResolveError)
	g.GET("/monitor/summary", h.MonitorSummary)
	g.GET("/monitor/:symbol", h.SymbolReport)
	g.GET("/stream/:symbol", h.StreamBars)
}

func (h *OpsHandler) ErrorStats(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.errs.Statistics())
}

func (h *OpsHandler) ErrorPatterns(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.errs.Patterns())
}

// ErrorRecords lists retained error records, newest first.
// Query params: since (RFC3339 or unix seconds, default 24h ago) and
// limit (default 100).
func (h *OpsHandler) ErrorRecords(c echo.Context) error {
	since := xhttp.ParseTimeDefault(c.QueryParam("since"), time.Now().Add(-24*time.Hour))
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 100)
	return xhttp.SuccessResponse(c, h.errs.Records(since, limit))
}

// ResolveRequest is the resolve endpoint body.
type ResolveRequest struct {
	Resolution string `json:"resolution" validate:"required"`
	ResolvedBy string `json:"resolved_by" validate:"required"`
}

func (h *OpsHandler) ResolveError(c echo.Context) error {
	req := &ResolveRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	id := c.Param("id")
	if !h.errs.Resolve(id, req.Resolution, req.ResolvedBy) {
		return xhttp.NotFoundResponse(c, "unknown or already resolved error id")
	}

	h.logger.Info("error resolved via api",
		xlogger.String("error_id", id),
		xlogger.String("resolved_by", req.ResolvedBy))
	return xhttp.SuccessResponse(c, map[string]string{"error_id": id, "status": "resolved"})
}

func (h *OpsHandler) MonitorSummary(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.monitor.Summary())
}

func (h *OpsHandler) SymbolReport(c echo.Context) error {
	symbol := c.Param("symbol")
	report, ok := h.monitor.Report(symbol)
	if !ok {
		return xhttp.NotFoundResponse(c, "no report for symbol")
	}
	return xhttp.SuccessResponse(c, report)
}

// StreamBars returns the intraday bars aggregated from the live tick
// stream for a symbol.
func (h *OpsHandler) StreamBars(c echo.Context) error {
	if h.collector == nil {
		return xhttp.NotFoundResponse(c, "live stream is disabled")
	}
	series := h.collector.Bars(c.Param("symbol"))
	if len(series.Bars) == 0 {
		return xhttp.NotFoundResponse(c, "no bars for symbol")
	}
	return xhttp.SuccessResponse(c, series)
}

func (h *OpsHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	status := map[string]string{}
	healthy := true
	for name, check := range h.checks {
		if err := check.Health(ctx); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	if !healthy {
		return xhttp.DataResponse(c, 503, status)
	}
	return xhttp.SuccessResponse(c, status)
}
