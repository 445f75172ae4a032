package errorhandler

import (
	"context"
	"testing"
	"time"

	"MarketWatch/internal/domain/models"
)

func TestKafkaErrorHandlerFeedsTracker(t *testing.T) {
	notifier := &fakeNotifier{}
	h := newTestHandler(t, notifier, Options{})
	ingest := NewKafkaErrorHandler("pipeline.errors", h)

	msg := []byte(`{
		"message": "copy into warehouse failed",
		"component": "daily_load",
		"operation": "copy",
		"severity": "high",
		"category": "database",
		"metadata": {"table": "orders"}
	}`)
	if err := ingest.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	ctx := context.Background()
	processQueued(ctx, h, 1)

	p, ok := h.Pattern(models.CategoryDatabase, "Error")
	if !ok {
		t.Fatal("pattern not recorded")
	}
	if p.Count != 1 {
		t.Fatalf("pattern count %d", p.Count)
	}
	recs := h.Records(p.FirstSeen.Add(-1), 10)
	if len(recs) != 1 {
		t.Fatalf("records %d", len(recs))
	}
	rec := recs[0]
	if rec.Severity != models.ErrorHigh || rec.Context.Component != "daily_load" {
		t.Fatalf("record %+v", rec)
	}
	if rec.Context.Metadata["table"] != "orders" {
		t.Fatalf("metadata %+v", rec.Context.Metadata)
	}
}

func TestKafkaErrorHandlerDefaultsComponent(t *testing.T) {
	h := newTestHandler(t, &fakeNotifier{}, Options{})
	ingest := NewKafkaErrorHandler("pipeline.errors", h)

	if err := ingest.Handle(context.Background(), []byte(`{"message":"api unreachable"}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	processQueued(context.Background(), h, 1)

	recs := h.Records(time.Time{}, 1)
	if len(recs) != 1 || recs[0].Context.Component != "external" {
		t.Fatalf("records %+v", recs)
	}
}

func TestKafkaErrorHandlerIgnoresUnknownEnums(t *testing.T) {
	h := newTestHandler(t, &fakeNotifier{}, Options{})
	ingest := NewKafkaErrorHandler("pipeline.errors", h)

	msg := []byte(`{"message":"connection refused by upstream","severity":"bananas","category":"made_up"}`)
	if err := ingest.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	processQueued(context.Background(), h, 1)

	recs := h.Records(time.Time{}, 1)
	if len(recs) != 1 {
		t.Fatalf("records %d", len(recs))
	}
	// Unrecognized values fall back to the classifier, which reads the
	// message as a network failure.
	rec := recs[0]
	if rec.Severity != models.ErrorLow || rec.Category != models.CategoryNetwork {
		t.Fatalf("classified as %s/%s, want low/network", rec.Severity, rec.Category)
	}
}

func TestKafkaErrorHandlerRejectsBadPayload(t *testing.T) {
	h := newTestHandler(t, &fakeNotifier{}, Options{})
	ingest := NewKafkaErrorHandler("pipeline.errors", h)

	if err := ingest.Handle(context.Background(), []byte(`not json`)); err == nil {
		t.Fatal("malformed payload accepted")
	}
	if err := ingest.Handle(context.Background(), []byte(`{}`)); err == nil {
		t.Fatal("empty message accepted")
	}
}
