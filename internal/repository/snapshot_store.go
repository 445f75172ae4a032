package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"MarketWatch/internal/domain/models"
	"MarketWatch/internal/domain/repository"
)

// ClickHouseSnapshotStore persists indicator snapshots. It implements
// repository.SnapshotStore.
type ClickHouseSnapshotStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseSnapshotStore creates a snapshot store over an existing
// connection pool.
func NewClickHouseSnapshotStore(db *sql.DB, table string) repository.SnapshotStore {
	if table == "" {
		table = "indicator_snapshots"
	}
	return &ClickHouseSnapshotStore{db: db, table: table}
}

// SnapshotSchema returns the idempotent DDL for the snapshot table.
func SnapshotSchema(table string) []string {
	if table == "" {
		table = "indicator_snapshots"
	}
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts DateTime,
		symbol LowCardinality(String),
		close Float64,
		volume Float64,
		ma5 Float64,
		ma20 Float64,
		ma50 Float64,
		rsi Float64,
		bb_middle Float64,
		bb_upper Float64,
		bb_lower Float64,
		macd Float64,
		macd_signal Float64,
		macd_histogram Float64,
		volume_ma Float64,
		volume_ratio Float64,
		price_change Float64,
		price_change_5 Float64,
		volatility Float64
	) ENGINE = ReplacingMergeTree ORDER BY (symbol, ts)`, table)}
}

// StoreSnapshot inserts all rows for one symbol in chunked multi-row
// statements. Undefined indicator fields are written as NaN, which
// ClickHouse Float64 columns carry natively.
func (s *ClickHouseSnapshotStore) StoreSnapshot(ctx context.Context, symbol string, rows []models.IndicatorRow) error {
	if len(rows) == 0 {
		return nil
	}

	const chunkSize = 1000
	const cols = 19
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*cols)
		for _, r := range rows[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				r.Timestamp, symbol, r.Close, r.Volume,
				r.MA5, r.MA20, r.MA50, r.RSI,
				r.BBMiddle, r.BBUpper, r.BBLower,
				r.MACD, r.MACDSignal, r.MACDHistogram,
				r.VolumeMA, r.VolumeRatio,
				r.PriceChange, r.PriceChange5, r.Volatility,
			)
		}

		q := fmt.Sprintf("INSERT INTO %s (ts, symbol, close, volume, ma5, ma20, ma50, rsi, bb_middle, bb_upper, bb_lower, macd, macd_signal, macd_histogram, volume_ma, volume_ratio, price_change, price_change_5, volatility) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store snapshot %s: %w", symbol, err)
		}
	}
	return nil
}

func (s *ClickHouseSnapshotStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseSnapshotStore) Close() error {
	return nil // pool is owned by pkg/clickhouse
}
