// Package alerting fans alerts out to every configured delivery channel.
// Channels are independent: one failing, misconfigured or panicking
// channel never prevents the others from attempting delivery.
package alerting

import (
	"context"
	"strings"
	"time"

	"MarketWatch/internal/domain/models"
	"MarketWatch/internal/domain/repository"
	"MarketWatch/pkg/cache"
	"MarketWatch/pkg/logger"
)

// Channel delivers one alert and reports success. Deliver must be safe
// to call concurrently and should honor ctx for outbound I/O.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, alert *models.Alert) bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithCooldown suppresses repeat deliveries of the same alert identity
// within ttl. A nil cache disables suppression.
func WithCooldown(c cache.Service, ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.cooldown = c
		m.cooldownTTL = ttl
	}
}

// WithMetrics attaches delivery metrics.
func WithMetrics(metrics repository.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = metrics }
}

// Manager is the notification fan-out. It implements
// repository.Notifier.
type Manager struct {
	log      *logger.Logger
	channels []Channel
	metrics  repository.Metrics

	cooldown    cache.Service
	cooldownTTL time.Duration
}

// NewManager creates a fan-out over the given channels.
func NewManager(log *logger.Logger, channels []Channel, opts ...ManagerOption) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	m := &Manager{log: log, channels: channels}
	for _, opt := range opts {
		opt(m)
	}
	if m.cooldownTTL <= 0 {
		m.cooldownTTL = 5 * time.Minute
	}
	return m
}

// Send dispatches the alert to every channel and returns per-channel
// success keyed by channel name. It never returns an error and never
// lets a channel panic escape.
func (m *Manager) Send(ctx context.Context, alert *models.Alert) map[string]bool {
	results := make(map[string]bool, len(m.channels))
	if alert == nil {
		return results
	}

	if m.suppressed(ctx, alert) {
		m.log.Debug("alert suppressed by cooldown",
			logger.String("title", alert.Title),
			logger.String("severity", string(alert.Severity)))
		return results
	}

	for _, ch := range m.channels {
		ok := m.deliver(ctx, ch, alert)
		results[ch.Name()] = ok
		if m.metrics != nil {
			m.metrics.RecordAlertDispatched(ch.Name(), ok)
		}
	}

	var succeeded []string
	for name, ok := range results {
		if ok {
			succeeded = append(succeeded, name)
		}
	}
	if len(succeeded) > 0 {
		m.log.Info("alert dispatched",
			logger.String("title", alert.Title),
			logger.String("severity", string(alert.Severity)),
			logger.Strings("channels", succeeded))
	} else {
		m.log.Error("alert failed on every channel",
			logger.String("title", alert.Title),
			logger.String("severity", string(alert.Severity)))
	}

	return results
}

// deliver runs one channel with panic isolation.
func (m *Manager) deliver(ctx context.Context, ch Channel, alert *models.Alert) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			m.log.Error("alert channel panicked",
				logger.String("channel", ch.Name()),
				logger.Any("panic", r))
		}
	}()
	return ch.Deliver(ctx, alert)
}

func (m *Manager) suppressed(ctx context.Context, alert *models.Alert) bool {
	if m.cooldown == nil {
		return false
	}
	key := cooldownKey(alert)
	exists, err := m.cooldown.Exists(ctx, key)
	if err != nil {
		return false
	}
	if exists {
		return true
	}
	if err := m.cooldown.Set(ctx, key, "1", m.cooldownTTL); err != nil {
		m.log.Warn("cooldown set failed", logger.Error(err))
	}
	return false
}

func cooldownKey(alert *models.Alert) string {
	title := strings.ToLower(strings.ReplaceAll(alert.Title, " ", "_"))
	return cache.GenerateKeyWithParams("alert:cooldown", alert.Type, alert.Severity, title)
}
