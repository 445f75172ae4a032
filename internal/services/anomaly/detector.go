// Package anomaly evaluates threshold rules against the latest indicator
// row. Detection is stateless and deterministic: rules fire independently
// in a fixed order (price change, volume spike, RSI, volatility), and a
// rule whose inputs are undefined is skipped rather than failing the pass.
package anomaly

import (
	"fmt"
	"math"

	"MarketWatch/internal/domain/models"
)

const highPriceChangePercent = 10.0

// Detect returns every rule that fires for the latest row, compared
// against the previous row where the rule needs one.
func Detect(latest, previous *models.IndicatorRow, thresholds models.Thresholds) []models.AnomalyAlert {
	if latest == nil {
		return nil
	}
	th := thresholds.Normalize()

	var alerts []models.AnomalyAlert

	if a := priceChange(latest, previous, th); a != nil {
		alerts = append(alerts, *a)
	}
	if a := volumeSpike(latest, th); a != nil {
		alerts = append(alerts, *a)
	}
	if a := rsiExtremes(latest, th); a != nil {
		alerts = append(alerts, *a)
	}
	if a := highVolatility(latest, th); a != nil {
		alerts = append(alerts, *a)
	}

	return alerts
}

func priceChange(latest, previous *models.IndicatorRow, th models.Thresholds) *models.AnomalyAlert {
	if previous == nil || previous.Close == 0 {
		return nil
	}
	pct := (latest.Close - previous.Close) / previous.Close * 100
	if math.Abs(pct) <= th.PriceChangePercent {
		return nil
	}
	// The high bound is inclusive: a move of exactly 10% is high.
	severity := models.SeverityMedium
	if math.Abs(pct) >= highPriceChangePercent {
		severity = models.SeverityHigh
	}
	return &models.AnomalyAlert{
		Kind:      models.AnomalyPriceChange,
		Severity:  severity,
		Message:   fmt.Sprintf("Significant price change: %.2f%%", pct),
		Observed:  pct,
		Threshold: th.PriceChangePercent,
	}
}

func volumeSpike(latest *models.IndicatorRow, th models.Thresholds) *models.AnomalyAlert {
	if !models.Defined(latest.VolumeRatio) {
		return nil
	}
	limit := th.VolumeSpikePercent / 100
	if latest.VolumeRatio <= limit {
		return nil
	}
	return &models.AnomalyAlert{
		Kind:      models.AnomalyVolumeSpike,
		Severity:  models.SeverityMedium,
		Message:   fmt.Sprintf("Volume spike detected: %.2fx normal", latest.VolumeRatio),
		Observed:  latest.VolumeRatio,
		Threshold: limit,
	}
}

// rsiExtremes fires at most one of overbought/oversold; the bands are
// disjoint by construction.
func rsiExtremes(latest *models.IndicatorRow, th models.Thresholds) *models.AnomalyAlert {
	if !models.Defined(latest.RSI) {
		return nil
	}
	switch {
	case latest.RSI > th.RSIOverbought:
		return &models.AnomalyAlert{
			Kind:      models.AnomalyRSIOverbought,
			Severity:  models.SeverityMedium,
			Message:   fmt.Sprintf("RSI indicates overbought condition: %.2f", latest.RSI),
			Observed:  latest.RSI,
			Threshold: th.RSIOverbought,
		}
	case latest.RSI < th.RSIOversold:
		return &models.AnomalyAlert{
			Kind:      models.AnomalyRSIOversold,
			Severity:  models.SeverityMedium,
			Message:   fmt.Sprintf("RSI indicates oversold condition: %.2f", latest.RSI),
			Observed:  latest.RSI,
			Threshold: th.RSIOversold,
		}
	}
	return nil
}

func highVolatility(latest *models.IndicatorRow, th models.Thresholds) *models.AnomalyAlert {
	if !models.Defined(latest.Volatility) {
		return nil
	}
	if latest.Volatility <= th.VolatilityThreshold {
		return nil
	}
	return &models.AnomalyAlert{
		Kind:      models.AnomalyHighVolatility,
		Severity:  models.SeverityMedium,
		Message:   fmt.Sprintf("High volatility detected: %.4f", latest.Volatility),
		Observed:  latest.Volatility,
		Threshold: th.VolatilityThreshold,
	}
}
