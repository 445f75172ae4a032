package models

// AnomalyKind identifies the rule that produced an AnomalyAlert.
type AnomalyKind string

const (
	AnomalyPriceChange    AnomalyKind = "price_change"
	AnomalyVolumeSpike    AnomalyKind = "volume_spike"
	AnomalyRSIOverbought  AnomalyKind = "rsi_overbought"
	AnomalyRSIOversold    AnomalyKind = "rsi_oversold"
	AnomalyHighVolatility AnomalyKind = "high_volatility"
)

// AnomalyAlert is one triggered detection rule, carrying the observed
// value and the threshold it was compared against for auditability.
type AnomalyAlert struct {
	Kind      AnomalyKind
	Severity  AlertSeverity
	Message   string
	Observed  float64
	Threshold float64
}

// Thresholds holds the detection thresholds. Zero values are replaced by
// defaults via Normalize, so the detector works without configuration.
type Thresholds struct {
	PriceChangePercent  float64 // percent move vs previous close
	VolumeSpikePercent  float64 // percent of the rolling mean volume
	VolatilityThreshold float64 // rolling stddev of returns
	RSIOverbought       float64
	RSIOversold         float64
}

// DefaultThresholds mirrors the stock monitor defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PriceChangePercent:  5.0,
		VolumeSpikePercent:  200.0,
		VolatilityThreshold: 0.02,
		RSIOverbought:       70,
		RSIOversold:         30,
	}
}

// Normalize fills zero fields with defaults and returns the result.
func (t Thresholds) Normalize() Thresholds {
	def := DefaultThresholds()
	if t.PriceChangePercent <= 0 {
		t.PriceChangePercent = def.PriceChangePercent
	}
	if t.VolumeSpikePercent <= 0 {
		t.VolumeSpikePercent = def.VolumeSpikePercent
	}
	if t.VolatilityThreshold <= 0 {
		t.VolatilityThreshold = def.VolatilityThreshold
	}
	if t.RSIOverbought <= 0 {
		t.RSIOverbought = def.RSIOverbought
	}
	if t.RSIOversold <= 0 {
		t.RSIOversold = def.RSIOversold
	}
	return t
}
