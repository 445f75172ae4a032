package models

import "time"

// AlertSeverity is the closed set of alert severities.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// AlertType is the closed set of outbound alert types.
type AlertType string

const (
	AlertDataQuality     AlertType = "data_quality"
	AlertPipelineFailure AlertType = "pipeline_failure"
	AlertPerformance     AlertType = "performance"
	AlertSecurity        AlertType = "security"
	AlertSystem          AlertType = "system"
	AlertMarket          AlertType = "market"
)

// Alert is the normalized unit handed to the notification fan-out.
// Constructed fresh per notification event and never mutated after.
type Alert struct {
	Type       AlertType
	Severity   AlertSeverity
	Title      string
	Message    string
	Timestamp  time.Time
	Metadata   map[string]any
	Recipients []string
}
