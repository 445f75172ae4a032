package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"MarketWatch/internal/domain/models"
	"MarketWatch/internal/domain/repository"
)

// ClickHouseErrorStore durably persists processed error records. It
// implements repository.ErrorStore.
type ClickHouseErrorStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseErrorStore creates an error record store over an
// existing connection pool.
func NewClickHouseErrorStore(db *sql.DB, table string) repository.ErrorStore {
	if table == "" {
		table = "error_records"
	}
	return &ClickHouseErrorStore{db: db, table: table}
}

// ErrorSchema returns the idempotent DDL for the error record table.
func ErrorSchema(table string) []string {
	if table == "" {
		table = "error_records"
	}
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts DateTime,
		error_id String,
		severity LowCardinality(String),
		category LowCardinality(String),
		error_type LowCardinality(String),
		message String,
		component LowCardinality(String),
		operation LowCardinality(String),
		stack_trace String
	) ENGINE = MergeTree ORDER BY (ts, error_id)`, table)}
}

func (s *ClickHouseErrorStore) StoreRecord(ctx context.Context, rec *models.ErrorRecord) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, error_id, severity, category, error_type, message, component, operation, stack_trace) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		rec.Timestamp,
		rec.ID,
		string(rec.Severity),
		string(rec.Category),
		rec.ErrorType,
		rec.Message,
		rec.Context.Component,
		rec.Context.Operation,
		rec.StackTrace,
	)
	if err != nil {
		return fmt.Errorf("store error record: %w", err)
	}
	return nil
}

func (s *ClickHouseErrorStore) QueryRecords(ctx context.Context, since time.Time, limit int) ([]*models.ErrorRecord, error) {
	if limit <= 0 {
		limit = 1000
	}
	q := fmt.Sprintf("SELECT ts, error_id, severity, category, error_type, message, component, operation FROM %s WHERE ts >= ? ORDER BY ts DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query error records: %w", err)
	}
	defer rows.Close()

	var out []*models.ErrorRecord
	for rows.Next() {
		var rec models.ErrorRecord
		var severity, category string
		if err := rows.Scan(&rec.Timestamp, &rec.ID, &severity, &category,
			&rec.ErrorType, &rec.Message, &rec.Context.Component, &rec.Context.Operation); err != nil {
			return nil, err
		}
		rec.Severity = models.ErrorSeverity(severity)
		rec.Category = models.ErrorCategory(category)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (s *ClickHouseErrorStore) Close() error {
	return nil // pool is owned by pkg/clickhouse
}
