package errorhandler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"MarketWatch/internal/domain/models"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline exceeded" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

type connErr struct{}

func (connErr) Error() string   { return "broken pipe" }
func (connErr) Timeout() bool   { return false }
func (connErr) Temporary() bool { return true }

func TestClassifySeverity(t *testing.T) {
	cases := []struct {
		err  error
		want models.ErrorSeverity
	}{
		{context.DeadlineExceeded, models.ErrorHigh},
		{fmt.Errorf("dial: %w", os.ErrPermission), models.ErrorHigh},
		{os.ErrNotExist, models.ErrorHigh},
		{timeoutErr{}, models.ErrorHigh},
		{connErr{}, models.ErrorHigh},
		{errors.New("something odd"), models.ErrorLow},
	}
	for _, tc := range cases {
		if got := ClassifySeverity(tc.err); got != tc.want {
			t.Fatalf("%v: severity %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestErrorTypeWrapping(t *testing.T) {
	wrapped := fmt.Errorf("fetch series: %w", context.DeadlineExceeded)
	if got := ErrorType(wrapped); got != "TimeoutError" {
		t.Fatalf("wrapped deadline: type %s", got)
	}
	if got := ErrorType(errors.New("x")); got != "Error" {
		t.Fatalf("plain error: type %s", got)
	}
}

func TestClassifyCategoryKeywordOrder(t *testing.T) {
	cases := []struct {
		msg  string
		want models.ErrorCategory
	}{
		{"connection refused by peer", models.CategoryNetwork},
		{"network unreachable", models.CategoryNetwork},
		{"database is locked", models.CategoryDatabase},
		{"sql: no rows", models.CategoryDatabase},
		{"auth token expired", models.CategoryAuthentication},
		{"login rejected", models.CategoryAuthentication},
		{"permission denied on bucket", models.CategoryAuthorization},
		{"access revoked", models.CategoryAuthorization},
		{"config key missing", models.CategoryConfiguration},
		{"invalid setting", models.CategoryConfiguration},
		{"data checksum mismatch", models.CategoryDataQuality},
		{"quality gate failed", models.CategoryDataQuality},
		{"performance degraded", models.CategoryPerformance},
		{"operation timeout exceeded", models.CategoryPerformance},
		{"external service unavailable", models.CategoryExternalService},
		{"api rate limited", models.CategoryExternalService},
		{"totally unexpected", models.CategorySystem},
	}
	for _, tc := range cases {
		if got := ClassifyCategory(errors.New(tc.msg)); got != tc.want {
			t.Fatalf("%q: category %s, want %s", tc.msg, got, tc.want)
		}
	}

	// Ordered scan: "connection" wins over the later "database" keyword.
	got := ClassifyCategory(errors.New("database connection lost"))
	if got != models.CategoryNetwork {
		t.Fatalf("first-match-wins violated: got %s", got)
	}
}
