package monitor

import (
	"time"

	"MarketWatch/internal/domain/models"
)

// PerformanceMetrics summarizes price and volume behavior over the
// analyzed window.
type PerformanceMetrics struct {
	CurrentPrice       float64 `json:"current_price"`
	DayChange          float64 `json:"day_change"`
	DayChangePercent   float64 `json:"day_change_percent"`
	WeekChangePercent  float64 `json:"week_change_percent"`
	MonthChangePercent float64 `json:"month_change_percent"`
	Volume             float64 `json:"volume"`
	AvgVolume          float64 `json:"avg_volume"`
	Volatility         float64 `json:"volatility"`
	RSI                float64 `json:"rsi"`
}

// TechnicalSummary condenses the latest indicator row into signals.
type TechnicalSummary struct {
	Trend             string `json:"trend"`              // bullish or bearish
	RSISignal         string `json:"rsi_signal"`         // overbought, oversold or neutral
	BollingerPosition string `json:"bollinger_position"` // upper, lower or middle
	MACDSignal        string `json:"macd_signal"`        // bullish or bearish
}

// RiskAssessment grades the symbol by realized volatility.
type RiskAssessment struct {
	Level      string  `json:"level"` // low, medium or high
	Volatility float64 `json:"volatility"`
	RSI        float64 `json:"rsi"`
}

// Report is the full per-symbol analysis result.
type Report struct {
	Timestamp       time.Time             `json:"timestamp"`
	Symbol          string                `json:"symbol"`
	Bars            int                   `json:"bars"`
	Performance     PerformanceMetrics    `json:"performance_metrics"`
	Technical       TechnicalSummary      `json:"technical_summary"`
	Risk            RiskAssessment        `json:"risk_assessment"`
	Anomalies       []models.AnomalyAlert `json:"anomalies"`
	Recommendations []string              `json:"recommendations"`
}

// OverallSummary aggregates metrics across one analysis sweep.
type OverallSummary struct {
	TotalSymbols      int     `json:"total_symbols"`
	TotalAlerts       int     `json:"total_alerts"`
	SymbolsWithAlerts int     `json:"symbols_with_alerts"`
	AverageVolatility float64 `json:"average_volatility"`
	AverageRSI        float64 `json:"average_rsi"`
	MinChangePercent  float64 `json:"min_change_percent"`
	MaxChangePercent  float64 `json:"max_change_percent"`
	AvgChangePercent  float64 `json:"avg_change_percent"`
	RiskAssessment    string  `json:"risk_assessment"`
}

// SweepResult is a full multi-symbol analysis pass.
type SweepResult struct {
	Timestamp time.Time          `json:"timestamp"`
	Symbols   []string           `json:"symbols_analyzed"`
	Reports   map[string]*Report `json:"analysis_results"`
	Summary   OverallSummary     `json:"overall_summary"`
}

// buildReport derives the report from computed indicator rows.
func buildReport(symbol string, rows []models.IndicatorRow, anomalies []models.AnomalyAlert, now time.Time) *Report {
	latest := rows[len(rows)-1]

	perf := PerformanceMetrics{
		CurrentPrice: latest.Close,
		Volume:       latest.Volume,
	}
	if models.Defined(latest.Volatility) {
		perf.Volatility = latest.Volatility
	}
	if models.Defined(latest.RSI) {
		perf.RSI = latest.RSI
	}
	if n := len(rows); n > 1 {
		prev := rows[n-2].Close
		perf.DayChange = latest.Close - prev
		if prev != 0 {
			perf.DayChangePercent = perf.DayChange / prev * 100
		}
	}
	if n := len(rows); n > 5 {
		week := rows[n-5].Close
		if week != 0 {
			perf.WeekChangePercent = (latest.Close - week) / week * 100
		}
	}
	if first := rows[0].Close; first != 0 {
		perf.MonthChangePercent = (latest.Close - first) / first * 100
	}
	var volumeSum float64
	for i := range rows {
		volumeSum += rows[i].Volume
	}
	perf.AvgVolume = volumeSum / float64(len(rows))

	tech := TechnicalSummary{
		Trend:             "bearish",
		RSISignal:         "neutral",
		BollingerPosition: "middle",
		MACDSignal:        "bearish",
	}
	if models.Defined(latest.MA5) && models.Defined(latest.MA20) && models.Defined(latest.MA50) &&
		latest.MA5 > latest.MA20 && latest.MA20 > latest.MA50 {
		tech.Trend = "bullish"
	}
	if models.Defined(latest.RSI) {
		switch {
		case latest.RSI > 70:
			tech.RSISignal = "overbought"
		case latest.RSI < 30:
			tech.RSISignal = "oversold"
		}
	}
	if models.Defined(latest.BBUpper) && latest.Close > latest.BBUpper {
		tech.BollingerPosition = "upper"
	} else if models.Defined(latest.BBLower) && latest.Close < latest.BBLower {
		tech.BollingerPosition = "lower"
	}
	if models.Defined(latest.MACD) && models.Defined(latest.MACDSignal) && latest.MACD > latest.MACDSignal {
		tech.MACDSignal = "bullish"
	}

	risk := RiskAssessment{Level: "low", Volatility: perf.Volatility, RSI: perf.RSI}
	switch {
	case perf.Volatility > 0.03:
		risk.Level = "high"
	case perf.Volatility > 0.02:
		risk.Level = "medium"
	}

	return &Report{
		Timestamp:       now,
		Symbol:          symbol,
		Bars:            len(rows),
		Performance:     perf,
		Technical:       tech,
		Risk:            risk,
		Anomalies:       anomalies,
		Recommendations: recommendations(tech, perf, anomalies),
	}
}

func recommendations(tech TechnicalSummary, perf PerformanceMetrics, anomalies []models.AnomalyAlert) []string {
	var recs []string

	switch tech.Trend {
	case "bullish":
		recs = append(recs, "Consider buying on dips - bullish trend detected")
	case "bearish":
		recs = append(recs, "Consider selling or shorting - bearish trend detected")
	}

	switch tech.RSISignal {
	case "overbought":
		recs = append(recs, "RSI indicates overbought condition - consider taking profits")
	case "oversold":
		recs = append(recs, "RSI indicates oversold condition - potential buying opportunity")
	}

	if perf.Volume > perf.AvgVolume*1.5 {
		recs = append(recs, "High volume detected - significant price movement expected")
	}

	if perf.Volatility > 0.03 {
		recs = append(recs, "High volatility - use stop-loss orders for risk management")
	}

	for _, a := range anomalies {
		if a.Kind == models.AnomalyPriceChange && a.Severity == models.SeverityHigh {
			recs = append(recs, "Significant price movement - monitor closely for trend continuation")
		}
	}

	return recs
}

// buildSummary aggregates across all per-symbol reports.
func buildSummary(reports map[string]*Report) OverallSummary {
	s := OverallSummary{TotalSymbols: len(reports), RiskAssessment: "low"}
	if len(reports) == 0 {
		return s
	}

	first := true
	var changeSum float64
	for _, r := range reports {
		s.TotalAlerts += len(r.Anomalies)
		if len(r.Anomalies) > 0 {
			s.SymbolsWithAlerts++
		}
		s.AverageVolatility += r.Performance.Volatility
		s.AverageRSI += r.Performance.RSI

		pct := r.Performance.DayChangePercent
		changeSum += pct
		if first || pct < s.MinChangePercent {
			s.MinChangePercent = pct
		}
		if first || pct > s.MaxChangePercent {
			s.MaxChangePercent = pct
		}
		first = false
	}

	n := float64(len(reports))
	s.AverageVolatility /= n
	s.AverageRSI /= n
	s.AvgChangePercent = changeSum / n

	switch {
	case s.AverageVolatility > 0.03 || s.TotalAlerts > 3:
		s.RiskAssessment = "high"
	case s.AverageVolatility > 0.02 || s.TotalAlerts > 1:
		s.RiskAssessment = "medium"
	}

	return s
}
