package models

import "time"

// ErrorSeverity is the closed set of error severities.
type ErrorSeverity string

const (
	ErrorLow      ErrorSeverity = "low"
	ErrorMedium   ErrorSeverity = "medium"
	ErrorHigh     ErrorSeverity = "high"
	ErrorCritical ErrorSeverity = "critical"
)

// AlertSeverityFor maps an error severity to the outbound alert severity.
func AlertSeverityFor(s ErrorSeverity) AlertSeverity {
	switch s {
	case ErrorCritical:
		return SeverityCritical
	case ErrorHigh:
		return SeverityHigh
	case ErrorMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// ErrorCategory is the closed set of error categories.
type ErrorCategory string

const (
	CategorySystem          ErrorCategory = "system"
	CategoryDataQuality     ErrorCategory = "data_quality"
	CategoryNetwork         ErrorCategory = "network"
	CategoryDatabase        ErrorCategory = "database"
	CategoryAuthentication  ErrorCategory = "authentication"
	CategoryAuthorization   ErrorCategory = "authorization"
	CategoryConfiguration   ErrorCategory = "configuration"
	CategoryBusinessLogic   ErrorCategory = "business_logic"
	CategoryExternalService ErrorCategory = "external_service"
	CategoryPerformance     ErrorCategory = "performance"
)

// ErrorContext carries the circumstances of a failure.
type ErrorContext struct {
	Component string
	Operation string
	RequestID string
	Metadata  map[string]any
}

// ErrorRecord is one captured failure. Owned exclusively by the tracker
// after submission; mutated only once, by resolution.
type ErrorRecord struct {
	ID         string
	Timestamp  time.Time
	Severity   ErrorSeverity
	Category   ErrorCategory
	ErrorType  string
	Message    string
	StackTrace string
	Context    ErrorContext
	Resolution string
	ResolvedAt time.Time
	AssignedTo string
}

// Resolved reports whether the record has been resolved.
func (r *ErrorRecord) Resolved() bool { return !r.ResolvedAt.IsZero() }

// ContextCount is one bucket of an ErrorPattern's context histogram.
type ContextCount struct {
	Context string `json:"context"`
	Count   int    `json:"count"`
}

// ErrorPattern aggregates occurrences per (category, error type) key.
// Counts grow monotonically; retention eviction of individual records
// never decrements them.
type ErrorPattern struct {
	Count     int            `json:"count"`
	FirstSeen time.Time      `json:"first_seen"`
	LastSeen  time.Time      `json:"last_seen"`
	Severity  ErrorSeverity  `json:"severity"`
	Category  ErrorCategory  `json:"category"`
	ErrorType string         `json:"error_type"`
	Contexts  []ContextCount `json:"common_contexts"`
}

// Clone returns a deep copy safe to hand to external readers.
func (p *ErrorPattern) Clone() *ErrorPattern {
	cp := *p
	cp.Contexts = append([]ContextCount(nil), p.Contexts...)
	return &cp
}
