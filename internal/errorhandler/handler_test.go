package errorhandler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"MarketWatch/internal/domain/models"
	"MarketWatch/pkg/logger"
)

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []*models.Alert
}

func (f *fakeNotifier) Send(_ context.Context, alert *models.Alert) map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
	return map[string]bool{"test": true}
}

func (f *fakeNotifier) breaches() []*models.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Alert
	for _, a := range f.alerts {
		if a.Metadata["alert_type"] == "threshold_exceeded" {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

func (f *fakeNotifier) recordAlerts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.alerts {
		if a.Metadata["alert_type"] != "threshold_exceeded" {
			n++
		}
	}
	return n
}

func newTestHandler(t *testing.T, notifier *fakeNotifier, opts Options) *Handler {
	t.Helper()
	if opts.PatternsPath == "" {
		opts.PatternsPath = filepath.Join(t.TempDir(), "patterns.json")
	}
	return New(logger.Nop(), notifier, nil, opts)
}

// processQueued synchronously processes up to n queued records in
// submission order.
func processQueued(ctx context.Context, h *Handler, n int) {
	for i := 0; i < n; i++ {
		rec, ok := h.q.TryDequeue()
		if !ok {
			return
		}
		h.process(ctx, rec)
	}
}

func TestHandleClassifiesAndStores(t *testing.T) {
	notifier := &fakeNotifier{}
	h := newTestHandler(t, notifier, Options{})
	ctx := context.Background()

	id := h.Handle(errors.New("database connection lost"),
		models.ErrorContext{Component: "quality_checks", Operation: "run"})
	if id == "" {
		t.Fatalf("expected an error id")
	}
	processQueued(ctx, h, 1)

	rec, ok := h.Record(id)
	if !ok {
		t.Fatalf("record %s not stored", id)
	}
	if rec.Category != models.CategoryNetwork {
		t.Fatalf("category %s, want network", rec.Category)
	}
	if rec.Severity != models.ErrorLow {
		t.Fatalf("severity %s, want low", rec.Severity)
	}
	if rec.Context.Component != "quality_checks" {
		t.Fatalf("context lost: %+v", rec.Context)
	}
}

func TestPatternCountMonotonic(t *testing.T) {
	notifier := &fakeNotifier{}
	h := newTestHandler(t, notifier, Options{Retention: time.Minute})
	ctx := context.Background()

	const k = 8
	clock := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return clock }

	for i := 0; i < k; i++ {
		h.Handle(errors.New("database is locked"), models.ErrorContext{Component: "warehouse", Operation: "insert"})
		processQueued(ctx, h, 1)
		clock = clock.Add(10 * time.Second)
	}

	p, ok := h.Pattern(models.CategoryDatabase, "Error")
	if !ok {
		t.Fatalf("pattern missing")
	}
	if p.Count != k {
		t.Fatalf("pattern count %d, want %d", p.Count, k)
	}
	if len(p.Contexts) != 1 || p.Contexts[0].Count != k {
		t.Fatalf("context histogram wrong: %+v", p.Contexts)
	}

	// Age every record past retention; eviction must not touch counts.
	clock = clock.Add(2 * time.Minute)
	h.Handle(errors.New("unrelated"), models.ErrorContext{})
	processQueued(ctx, h, 1)

	stats := h.Statistics()
	if stats.TotalErrors != 1 {
		t.Fatalf("expected old records evicted, have %d", stats.TotalErrors)
	}
	p, _ = h.Pattern(models.CategoryDatabase, "Error")
	if p.Count != k {
		t.Fatalf("eviction decremented pattern count: %d", p.Count)
	}
}

func TestThresholdBreach(t *testing.T) {
	ctx := context.Background()

	run := func(criticals int) int {
		notifier := &fakeNotifier{}
		h := newTestHandler(t, notifier, Options{})
		for i := 0; i < criticals; i++ {
			h.Handle(errors.New("boom"), models.ErrorContext{},
				WithSeverity(models.ErrorCritical))
			processQueued(ctx, h, 1)
		}
		return len(notifier.breaches())
	}

	if got := run(5); got != 1 {
		t.Fatalf("5 criticals: %d breach alerts, want 1", got)
	}
	if got := run(4); got != 0 {
		t.Fatalf("4 criticals: %d breach alerts, want 0", got)
	}
}

func TestNotifyDecision(t *testing.T) {
	ctx := context.Background()
	notifier := &fakeNotifier{}
	h := newTestHandler(t, notifier, Options{})

	// Low severity, fresh pattern: no notification.
	h.Handle(errors.New("minor hiccup"), models.ErrorContext{})
	processQueued(ctx, h, 1)
	if n := notifier.count(); n != 0 {
		t.Fatalf("low severity notified: %d alerts", n)
	}

	// High severity notifies immediately.
	h.Handle(errors.New("api fetch failed"), models.ErrorContext{}, WithSeverity(models.ErrorHigh))
	processQueued(ctx, h, 1)
	if n := notifier.count(); n != 1 {
		t.Fatalf("high severity: %d alerts, want 1", n)
	}

	// A repeating low-severity pattern notifies once past 5 occurrences.
	before := notifier.count()
	for i := 0; i < 6; i++ {
		h.Handle(errors.New("minor hiccup"), models.ErrorContext{})
		processQueued(ctx, h, 1)
	}
	p, _ := h.Pattern(models.CategorySystem, "Error")
	if p.Count != 7 {
		t.Fatalf("pattern count %d, want 7", p.Count)
	}
	if n := notifier.count() - before; n != 2 {
		// occurrences 6 and 7 exceed the repeat threshold
		t.Fatalf("repeat pattern: %d alerts, want 2", n)
	}
}

func TestResolveSetsFieldsOnce(t *testing.T) {
	ctx := context.Background()
	h := newTestHandler(t, &fakeNotifier{}, Options{})

	id := h.Handle(errors.New("needs attention"), models.ErrorContext{})
	processQueued(ctx, h, 1)

	if h.Resolve("no-such-id", "n/a", "ops") {
		t.Fatalf("resolved unknown id")
	}
	if !h.Resolve(id, "restarted the job", "ops") {
		t.Fatalf("first resolve failed")
	}
	rec, _ := h.Record(id)
	if rec.Resolution != "restarted the job" || rec.AssignedTo != "ops" {
		t.Fatalf("resolution fields not set: %+v", rec)
	}
	if rec.ResolvedAt.Before(rec.Timestamp) {
		t.Fatalf("resolved_at %v before timestamp %v", rec.ResolvedAt, rec.Timestamp)
	}
	if h.Resolve(id, "second attempt", "someone-else") {
		t.Fatalf("resolution reverted")
	}
	rec, _ = h.Record(id)
	if rec.AssignedTo != "ops" {
		t.Fatalf("resolution overwritten: %+v", rec)
	}
}

func TestConsumerSurvivesNotifierPanic(t *testing.T) {
	ctx := context.Background()
	h := newTestHandler(t, nil, Options{})
	h.notifier = panicNotifier{}

	h.Handle(errors.New("boom"), models.ErrorContext{}, WithSeverity(models.ErrorCritical))
	processQueued(ctx, h, 1) // must not panic out

	h.notifier = nil
	h.Handle(errors.New("after the panic"), models.ErrorContext{})
	processQueued(ctx, h, 1)
	if h.Statistics().TotalErrors != 2 {
		t.Fatalf("consumer lost records after panic")
	}
}

type panicNotifier struct{}

func (panicNotifier) Send(context.Context, *models.Alert) map[string]bool {
	panic("transport exploded")
}

func TestPatternPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "patterns.json")

	h := newTestHandler(t, &fakeNotifier{}, Options{PatternsPath: path})
	for i := 0; i < 3; i++ {
		h.Handle(errors.New("sql: connection reset"), models.ErrorContext{Component: "etl", Operation: "load"})
		processQueued(ctx, h, 1)
	}
	if err := h.SavePatterns(); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded := New(logger.Nop(), &fakeNotifier{}, nil, Options{PatternsPath: path})
	p, ok := reloaded.Pattern(models.CategoryNetwork, "Error")
	if !ok {
		t.Fatalf("pattern not reloaded")
	}
	if p.Count != 3 {
		t.Fatalf("reloaded count %d, want 3", p.Count)
	}
}

func TestSubmitOrderIsProcessingOrder(t *testing.T) {
	notifier := &fakeNotifier{}
	h := newTestHandler(t, notifier, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx)

	ids := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		ids = append(ids, h.Handle(errors.New("probe"), models.ErrorContext{}, WithSeverity(models.ErrorHigh)))
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if notifier.recordAlerts() >= 20 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("consumer processed %d of 20", notifier.recordAlerts())
		}
		time.Sleep(5 * time.Millisecond)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	seen := 0
	for _, a := range notifier.alerts {
		if a.Metadata["alert_type"] == "threshold_exceeded" {
			continue
		}
		if a.Metadata["error_id"] != ids[seen] {
			t.Fatalf("dispatch order mismatch at %d", seen)
		}
		seen++
	}
	if seen != 20 {
		t.Fatalf("saw %d record alerts, want 20", seen)
	}
}
