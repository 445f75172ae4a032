package errorhandler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"MarketWatch/internal/domain/models"
	"MarketWatch/internal/domain/repository"
	"MarketWatch/pkg/logger"
	"MarketWatch/pkg/queue"
)

const (
	defaultQueueSize     = 1024
	defaultRetention     = 30 * 24 * time.Hour
	defaultSaveEvery     = 10
	notifyPatternCount   = 5
	thresholdWindow      = time.Hour
	stackTruncateForMeta = 500
)

// Thresholds are the per-severity counts over the trailing hour that
// trigger a breach alert.
type Thresholds struct {
	CriticalPerHour int
	HighPerHour     int
	MediumPerHour   int
}

// DefaultThresholds mirrors the shipped alerting defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{CriticalPerHour: 5, HighPerHour: 20, MediumPerHour: 50}
}

// Options configures a Handler. The zero value works: defaults cover
// every field.
type Options struct {
	QueueSize    int
	Retention    time.Duration
	Thresholds   Thresholds
	PatternsPath string // JSON pattern persistence; empty disables
	SaveEvery    int    // persist patterns every Nth update of a pattern
	Retry        RetryOptions
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = defaultQueueSize
	}
	if o.Retention <= 0 {
		o.Retention = defaultRetention
	}
	if o.Thresholds == (Thresholds{}) {
		o.Thresholds = DefaultThresholds()
	}
	if o.SaveEvery <= 0 {
		o.SaveEvery = defaultSaveEvery
	}
	o.Retry = o.Retry.withDefaults()
	return o
}

// Handler is the error pattern tracker. Producers submit records through
// Handle; a single consumer goroutine (Start) serializes all mutation of
// records and patterns, so processing needs no data races to reason
// about. External readers get snapshots, never live references.
type Handler struct {
	opts     Options
	log      *logger.Logger
	notifier repository.Notifier
	metrics  repository.Metrics
	store    repository.ErrorStore // optional durable record store

	q *queue.Queue[*models.ErrorRecord]

	mu       sync.RWMutex
	records  map[string]*models.ErrorRecord
	patterns map[string]*models.ErrorPattern

	now func() time.Time // test hook
}

// New creates a Handler and loads persisted patterns. Call Start to
// launch the consumer.
func New(log *logger.Logger, notifier repository.Notifier, metrics repository.Metrics, opts Options) *Handler {
	opts = opts.withDefaults()
	if log == nil {
		log = logger.Nop()
	}

	patterns, err := loadPatterns(opts.PatternsPath)
	if err != nil {
		log.Warn("error patterns load failed", logger.Error(err))
	}

	return &Handler{
		opts:     opts,
		log:      log,
		notifier: notifier,
		metrics:  metrics,
		q:        queue.New[*models.ErrorRecord](opts.QueueSize),
		records:  make(map[string]*models.ErrorRecord),
		patterns: patterns,
		now:      time.Now,
	}
}

// SetErrorStore attaches a durable record store. Must be called before
// Start.
func (h *Handler) SetErrorStore(store repository.ErrorStore) { h.store = store }

// Start launches the consumer goroutine. It returns immediately; the
// consumer runs until ctx is cancelled. In-flight records at shutdown
// are lost, which is an accepted limitation of process-exit shutdown.
func (h *Handler) Start(ctx context.Context) {
	go h.q.Run(ctx, h.process)
}

// HandleOption overrides classification for one submission.
type HandleOption func(*models.ErrorRecord)

// WithSeverity forces the record severity.
func WithSeverity(s models.ErrorSeverity) HandleOption {
	return func(r *models.ErrorRecord) { r.Severity = s }
}

// WithCategory forces the record category.
func WithCategory(c models.ErrorCategory) HandleOption {
	return func(r *models.ErrorRecord) { r.Category = c }
}

// Handle classifies err, enqueues a record for asynchronous processing
// and returns its id immediately. When the queue is full the record is
// dropped with a log line rather than blocking the caller.
func (h *Handler) Handle(err error, ectx models.ErrorContext, opts ...HandleOption) string {
	if err == nil {
		return ""
	}

	rec := &models.ErrorRecord{
		ID:         uuid.NewString(),
		Timestamp:  h.now(),
		Severity:   ClassifySeverity(err),
		Category:   ClassifyCategory(err),
		ErrorType:  ErrorType(err),
		Message:    err.Error(),
		StackTrace: string(debug.Stack()),
		Context:    ectx,
	}
	for _, opt := range opts {
		opt(rec)
	}

	if !h.q.Enqueue(rec) {
		if h.metrics != nil {
			h.metrics.RecordErrorDropped()
		}
		h.log.Warn("error queue full, record dropped",
			logger.String("error_id", rec.ID),
			logger.String("error_type", rec.ErrorType))
	}
	return rec.ID
}

// process handles one record. It must never kill the consumer: panics
// are recovered and logged, because this goroutine is the sole processor
// of all error traffic.
func (h *Handler) process(ctx context.Context, rec *models.ErrorRecord) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("error record processing panicked",
				logger.Any("panic", r),
				logger.String("error_id", rec.ID))
		}
	}()

	h.mu.Lock()
	h.records[rec.ID] = rec
	pattern, saveDue := h.updatePattern(rec)
	breaches := h.windowBreaches(rec.Timestamp)
	evicted := h.evictExpired(rec.Timestamp)
	h.mu.Unlock()

	if saveDue {
		if err := savePatterns(h.opts.PatternsPath, h.snapshotPatterns()); err != nil {
			h.log.Warn("error patterns save failed", logger.Error(err))
		}
	}

	h.logRecord(rec)
	if h.metrics != nil {
		h.metrics.RecordErrorProcessed(string(rec.Severity), string(rec.Category))
	}

	for _, b := range breaches {
		h.notifyBreach(ctx, b)
	}

	if h.shouldNotify(rec, pattern) {
		h.notifyRecord(ctx, rec)
	}

	if h.store != nil {
		if err := h.store.StoreRecord(ctx, rec); err != nil {
			h.log.Warn("error record persist failed",
				logger.String("error_id", rec.ID), logger.Error(err))
		}
	}

	if evicted > 0 {
		h.log.Info("expired error records evicted", logger.Int("count", evicted))
	}
}

// updatePattern increments the matching pattern under h.mu and reports
// whether a periodic save is due.
func (h *Handler) updatePattern(rec *models.ErrorRecord) (*models.ErrorPattern, bool) {
	key := patternKey(rec.Category, rec.ErrorType)
	p, ok := h.patterns[key]
	if !ok {
		p = &models.ErrorPattern{
			FirstSeen: rec.Timestamp,
			Severity:  rec.Severity,
			Category:  rec.Category,
			ErrorType: rec.ErrorType,
		}
		h.patterns[key] = p
	}
	p.Count++
	p.LastSeen = rec.Timestamp

	ctxKey := rec.Context.Component + "_" + rec.Context.Operation
	found := false
	for i := range p.Contexts {
		if p.Contexts[i].Context == ctxKey {
			p.Contexts[i].Count++
			found = true
			break
		}
	}
	if !found {
		p.Contexts = append(p.Contexts, models.ContextCount{Context: ctxKey, Count: 1})
	}

	return p.Clone(), p.Count%h.opts.SaveEvery == 0
}

type breach struct {
	severity  models.ErrorSeverity
	count     int
	threshold int
}

// windowBreaches counts records in the trailing hour per severity and
// returns every severity at or above its threshold. Called under h.mu.
func (h *Handler) windowBreaches(now time.Time) []breach {
	cutoff := now.Add(-thresholdWindow)
	counts := make(map[models.ErrorSeverity]int)
	for _, r := range h.records {
		if r.Timestamp.After(cutoff) {
			counts[r.Severity]++
		}
	}

	checks := []struct {
		severity  models.ErrorSeverity
		threshold int
	}{
		{models.ErrorCritical, h.opts.Thresholds.CriticalPerHour},
		{models.ErrorHigh, h.opts.Thresholds.HighPerHour},
		{models.ErrorMedium, h.opts.Thresholds.MediumPerHour},
	}

	var out []breach
	for _, c := range checks {
		if c.threshold <= 0 {
			continue
		}
		if n := counts[c.severity]; n >= c.threshold {
			out = append(out, breach{severity: c.severity, count: n, threshold: c.threshold})
		}
	}
	return out
}

// evictExpired removes records older than the retention window. Pattern
// counts are untouched; they are monotonic by contract. Called under h.mu.
func (h *Handler) evictExpired(now time.Time) int {
	cutoff := now.Add(-h.opts.Retention)
	n := 0
	for id, r := range h.records {
		if r.Timestamp.Before(cutoff) {
			delete(h.records, id)
			n++
		}
	}
	return n
}

func (h *Handler) logRecord(rec *models.ErrorRecord) {
	fields := []logger.Field{
		logger.String("error_id", rec.ID),
		logger.String("error_type", rec.ErrorType),
		logger.String("category", string(rec.Category)),
		logger.String("component", rec.Context.Component),
		logger.String("operation", rec.Context.Operation),
	}
	msg := rec.Message
	switch rec.Severity {
	case models.ErrorCritical, models.ErrorHigh:
		h.log.Error(msg, fields...)
	case models.ErrorMedium:
		h.log.Warn(msg, fields...)
	default:
		h.log.Info(msg, fields...)
	}
}

// shouldNotify decides whether a record fans out: high or critical
// severity, or a pattern seen more than notifyPatternCount times.
func (h *Handler) shouldNotify(rec *models.ErrorRecord, pattern *models.ErrorPattern) bool {
	if rec.Severity == models.ErrorHigh || rec.Severity == models.ErrorCritical {
		return true
	}
	return pattern != nil && pattern.Count > notifyPatternCount
}

func (h *Handler) notifyRecord(ctx context.Context, rec *models.ErrorRecord) {
	if h.notifier == nil {
		return
	}
	stack := rec.StackTrace
	if len(stack) > stackTruncateForMeta {
		stack = stack[:stackTruncateForMeta]
	}
	alert := &models.Alert{
		Type:      models.AlertSystem,
		Severity:  models.AlertSeverityFor(rec.Severity),
		Title:     fmt.Sprintf("Error: %s", rec.ErrorType),
		Message:   rec.Message,
		Timestamp: rec.Timestamp,
		Metadata: map[string]any{
			"error_id":    rec.ID,
			"category":    string(rec.Category),
			"component":   rec.Context.Component,
			"operation":   rec.Context.Operation,
			"stack_trace": stack,
		},
	}
	h.notifier.Send(ctx, alert)
}

func (h *Handler) notifyBreach(ctx context.Context, b breach) {
	msg := fmt.Sprintf("Error threshold exceeded: %d %s errors in the last hour (threshold: %d)",
		b.count, b.severity, b.threshold)
	h.log.Warn(msg)
	if h.notifier == nil {
		return
	}
	alert := &models.Alert{
		Type:      models.AlertSystem,
		Severity:  models.SeverityHigh,
		Title:     fmt.Sprintf("Error Threshold Alert - %s", b.severity),
		Message:   msg,
		Timestamp: h.now(),
		Metadata: map[string]any{
			"severity":   string(b.severity),
			"count":      b.count,
			"threshold":  b.threshold,
			"alert_type": "threshold_exceeded",
		},
	}
	h.notifier.Send(ctx, alert)
}

// Resolve marks a record resolved. It reports false for an unknown id or
// a record that is already resolved; resolution fields are set exactly
// once and never reverted.
func (h *Handler) Resolve(errorID, resolution, resolvedBy string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec, ok := h.records[errorID]
	if !ok || rec.Resolved() {
		return false
	}
	rec.Resolution = resolution
	rec.ResolvedAt = h.now()
	rec.AssignedTo = resolvedBy

	h.log.Info("error resolved",
		logger.String("error_id", errorID),
		logger.String("resolved_by", resolvedBy))
	return true
}

// Record returns a copy of a stored record.
func (h *Handler) Record(errorID string) (models.ErrorRecord, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rec, ok := h.records[errorID]
	if !ok {
		return models.ErrorRecord{}, false
	}
	return *rec, true
}

// Records returns copies of retained records captured at or after
// since, newest first, capped at limit.
func (h *Handler) Records(since time.Time, limit int) []models.ErrorRecord {
	h.mu.RLock()
	out := make([]models.ErrorRecord, 0, len(h.records))
	for _, rec := range h.records {
		if rec.Timestamp.Before(since) {
			continue
		}
		out = append(out, *rec)
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Pattern returns a copy of the pattern for a (category, type) key.
func (h *Handler) Pattern(category models.ErrorCategory, errorType string) (models.ErrorPattern, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.patterns[patternKey(category, errorType)]
	if !ok {
		return models.ErrorPattern{}, false
	}
	return *p.Clone(), true
}

// Patterns returns a deep copy of all patterns.
func (h *Handler) Patterns() map[string]models.ErrorPattern {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]models.ErrorPattern, len(h.patterns))
	for k, p := range h.patterns {
		out[k] = *p.Clone()
	}
	return out
}

// SavePatterns persists the pattern map on demand.
func (h *Handler) SavePatterns() error {
	return savePatterns(h.opts.PatternsPath, h.snapshotPatterns())
}

func (h *Handler) snapshotPatterns() map[string]*models.ErrorPattern {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]*models.ErrorPattern, len(h.patterns))
	for k, p := range h.patterns {
		out[k] = p.Clone()
	}
	return out
}

// PatternStat is one entry of the top-pattern ranking.
type PatternStat struct {
	Pattern  string               `json:"pattern"`
	Count    int                  `json:"count"`
	Severity models.ErrorSeverity `json:"severity"`
	Category models.ErrorCategory `json:"category"`
}

// Stats is a point-in-time summary of tracked errors.
type Stats struct {
	Timestamp   time.Time      `json:"timestamp"`
	TotalErrors int            `json:"total_errors"`
	LastHour    int            `json:"last_hour"`
	LastDay     int            `json:"last_day"`
	LastWeek    int            `json:"last_week"`
	BySeverity  map[string]int `json:"errors_by_severity"`
	ByCategory  map[string]int `json:"errors_by_category"`
	TopPatterns []PatternStat  `json:"top_error_patterns"`
	QueueDepth  int            `json:"queue_depth"`
}

// Statistics returns a snapshot of error activity.
func (h *Handler) Statistics() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := h.now()
	stats := Stats{
		Timestamp:   now,
		TotalErrors: len(h.records),
		BySeverity:  make(map[string]int),
		ByCategory:  make(map[string]int),
		QueueDepth:  h.q.Len(),
	}

	hourAgo := now.Add(-time.Hour)
	dayAgo := now.Add(-24 * time.Hour)
	weekAgo := now.Add(-7 * 24 * time.Hour)
	for _, r := range h.records {
		if r.Timestamp.After(hourAgo) {
			stats.LastHour++
		}
		if r.Timestamp.After(dayAgo) {
			stats.LastDay++
		}
		if r.Timestamp.After(weekAgo) {
			stats.LastWeek++
		}
		stats.BySeverity[string(r.Severity)]++
		stats.ByCategory[string(r.Category)]++
	}

	for key, p := range h.patterns {
		stats.TopPatterns = append(stats.TopPatterns, PatternStat{
			Pattern:  key,
			Count:    p.Count,
			Severity: p.Severity,
			Category: p.Category,
		})
	}
	sort.Slice(stats.TopPatterns, func(i, j int) bool {
		if stats.TopPatterns[i].Count != stats.TopPatterns[j].Count {
			return stats.TopPatterns[i].Count > stats.TopPatterns[j].Count
		}
		return stats.TopPatterns[i].Pattern < stats.TopPatterns[j].Pattern
	})
	if len(stats.TopPatterns) > 10 {
		stats.TopPatterns = stats.TopPatterns[:10]
	}

	return stats
}
