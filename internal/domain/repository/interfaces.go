package repository

import (
	"context"
	"time"

	"MarketWatch/internal/domain/models"
)

// Source fetches a historical price series for a symbol. Implementations
// are treated as unreliable: an empty Series is a valid result and must
// not break downstream computation.
type Source interface {
	Fetch(ctx context.Context, symbol, period, interval string) (models.Series, error)
}

// TickStream is a live trade feed used to build bars in real time.
type TickStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Notifier dispatches one alert to every configured channel and reports
// per-channel success. Never returns an error; failures are entries in
// the map.
type Notifier interface {
	Send(ctx context.Context, alert *models.Alert) map[string]bool
}

// SnapshotStore persists indicator snapshots for later inspection.
type SnapshotStore interface {
	StoreSnapshot(ctx context.Context, symbol string, rows []models.IndicatorRow) error
	Health(ctx context.Context) error
	Close() error
}

// ErrorStore durably persists error records as they are processed.
type ErrorStore interface {
	StoreRecord(ctx context.Context, rec *models.ErrorRecord) error
	QueryRecords(ctx context.Context, since time.Time, limit int) ([]*models.ErrorRecord, error)
	Close() error
}

// Metrics records operational measurements.
type Metrics interface {
	RecordErrorProcessed(severity, category string)
	RecordErrorDropped()
	RecordAlertDispatched(channel string, ok bool)
	RecordAnomaly(symbol, kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
