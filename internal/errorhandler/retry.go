package errorhandler

import (
	"context"
	"time"

	"MarketWatch/internal/domain/models"
	"MarketWatch/pkg/logger"
)

// RetryOptions bounds the retry loop.
type RetryOptions struct {
	MaxRetries int // additional attempts after the first
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	FixedDelay bool // disable exponential backoff
	Retryable  func(error) bool
	Component  string
	Operation  string
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = time.Second
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 60 * time.Second
	}
	return o
}

// Retry runs op, retrying retryable failures with bounded backoff. On
// exhaustion the terminal failure is submitted as a HIGH/system record
// and the original error is returned unchanged, so wrapping is invisible
// on success and transparent on failure. Non-retryable errors propagate
// immediately. Only the inter-attempt delay honors ctx.
func (h *Handler) Retry(ctx context.Context, opts RetryOptions, op func(ctx context.Context) error) error {
	_, err := RetryValue(ctx, h, opts, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// RetryValue is Retry for operations that return a value.
func RetryValue[T any](ctx context.Context, h *Handler, opts RetryOptions, op func(ctx context.Context) (T, error)) (T, error) {
	base := h.opts.Retry
	if opts.MaxRetries > 0 {
		base.MaxRetries = opts.MaxRetries
	}
	if opts.BaseDelay > 0 {
		base.BaseDelay = opts.BaseDelay
	}
	if opts.MaxDelay > 0 {
		base.MaxDelay = opts.MaxDelay
	}
	if opts.FixedDelay {
		base.FixedDelay = true
	}
	if opts.Retryable != nil {
		base.Retryable = opts.Retryable
	}
	base.Component = opts.Component
	base.Operation = opts.Operation
	base = base.withDefaults()

	var zero T
	var lastErr error

	for attempt := 0; attempt <= base.MaxRetries; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if base.Retryable != nil && !base.Retryable(err) {
			return zero, err
		}
		lastErr = err

		if attempt == base.MaxRetries {
			h.Handle(err,
				models.ErrorContext{
					Component: base.Component,
					Operation: base.Operation,
					Metadata: map[string]any{
						"attempts":    attempt + 1,
						"max_retries": base.MaxRetries,
					},
				},
				WithSeverity(models.ErrorHigh),
				WithCategory(models.CategorySystem))
			return zero, err
		}

		delay := base.BaseDelay
		if !base.FixedDelay {
			delay = base.BaseDelay << uint(attempt)
			if delay > base.MaxDelay || delay <= 0 {
				delay = base.MaxDelay
			}
		}

		h.log.Warn("attempt failed, retrying",
			logger.Int("attempt", attempt+1),
			logger.String("operation", base.Operation),
			logger.Duration("delay", delay),
			logger.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}
