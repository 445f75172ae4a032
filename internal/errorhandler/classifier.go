// Package errorhandler tracks failures process-wide: classification,
// pattern aggregation, sliding-window threshold alerting, and a retry
// helper with bounded exponential backoff. One handler instance is
// constructed by the host and injected wherever it is needed; there is
// no package-level singleton.
package errorhandler

import (
	"context"
	"errors"
	"net"
	"os"
	"reflect"
	"runtime"
	"strings"

	"MarketWatch/internal/domain/models"
)

// ErrorType derives a canonical type name for an error, used as the
// pattern key and as input to severity classification.
func ErrorType(err error) string {
	if err == nil {
		return "nil"
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "TimeoutError"
	case errors.Is(err, os.ErrPermission):
		return "PermissionError"
	case errors.Is(err, os.ErrNotExist):
		return "NotFoundError"
	}

	var re runtime.Error
	if errors.As(err, &re) {
		return "RuntimeError"
	}

	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return "TimeoutError"
		}
		return "ConnectionError"
	}

	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if name := t.Name(); name != "" && name != "errorString" {
		return name
	}
	return "Error"
}

// severityByType is the fixed classification table, evaluated before the
// default. Runtime-class failures are critical; connectivity, timeouts
// and filesystem access are high; malformed input is medium; everything
// else is low.
var severityByType = map[string]models.ErrorSeverity{
	"RuntimeError": models.ErrorCritical,

	"ConnectionError": models.ErrorHigh,
	"TimeoutError":    models.ErrorHigh,
	"PermissionError": models.ErrorHigh,
	"NotFoundError":   models.ErrorHigh,

	"SyntaxError":    models.ErrorMedium,
	"UnmarshalError": models.ErrorMedium,
	"NumError":       models.ErrorMedium,
	"ParseError":     models.ErrorMedium,
	"ValueError":     models.ErrorMedium,
}

// ClassifySeverity maps an error to a severity via the type table.
func ClassifySeverity(err error) models.ErrorSeverity {
	if s, ok := severityByType[ErrorType(err)]; ok {
		return s
	}
	return models.ErrorLow
}

// categoryKeywords is scanned in order; the first match wins.
var categoryKeywords = []struct {
	words    []string
	category models.ErrorCategory
}{
	{[]string{"connection", "network"}, models.CategoryNetwork},
	{[]string{"database", "sql"}, models.CategoryDatabase},
	{[]string{"auth", "login"}, models.CategoryAuthentication},
	{[]string{"permission", "access"}, models.CategoryAuthorization},
	{[]string{"config", "setting"}, models.CategoryConfiguration},
	{[]string{"data", "quality"}, models.CategoryDataQuality},
	{[]string{"performance", "timeout"}, models.CategoryPerformance},
	{[]string{"external", "api"}, models.CategoryExternalService},
}

// ClassifyCategory infers a category from a case-insensitive substring
// scan of the error message.
func ClassifyCategory(err error) models.ErrorCategory {
	if err == nil {
		return models.CategorySystem
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range categoryKeywords {
		for _, w := range kw.words {
			if strings.Contains(msg, w) {
				return kw.category
			}
		}
	}
	return models.CategorySystem
}
