package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FerryCast/internal/domain/models"
	"FerryCast/internal/domain/repository"
)

const forecastColumns = "id, served_at, mode, target, forecast_date, value, start_date, end_date, lookback, artifacts_version"

// Execer is satisfied by *sql.DB.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ClickHouseForecastStore implements ForecastSink for ClickHouse.
type ClickHouseForecastStore struct {
	db    Execer
	table string
}

// NewClickHouseForecastStore creates ClickHouse storage writing to <database>.forecasts.
func NewClickHouseForecastStore(db Execer, database string) repository.ForecastSink {
	return &ClickHouseForecastStore{db: db, table: forecastTable(database)}
}

// ForecastSchema returns the DDL for the forecasts table.
func ForecastSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id UUID,
	served_at DateTime64(3, 'UTC'),
	mode LowCardinality(String),
	target LowCardinality(String),
	forecast_date Date,
	value Int64,
	start_date Date,
	end_date Date,
	lookback UInt16,
	artifacts_version String
) ENGINE = MergeTree
PARTITION BY toYYYYMM(forecast_date)
ORDER BY (target, forecast_date, served_at)`, forecastTable(database)),
	}
}

func (s *ClickHouseForecastStore) Record(ctx context.Context, events []models.ForecastEvent) error {
	if len(events) == 0 {
		return nil
	}
	// Chunked multi-row VALUES to bound statement size.
	const chunkSize = 1000
	for start := 0; start < len(events); start += chunkSize {
		end := start + chunkSize
		if end > len(events) {
			end = len(events)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*10)
		for _, ev := range events[start:end] {
			day, err := parseDay(ev.Date)
			if err != nil {
				return err
			}
			from, err := parseDay(ev.StartDate)
			if err != nil {
				return err
			}
			to, err := parseDay(ev.EndDate)
			if err != nil {
				return err
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				ev.ID,
				ev.ServedAt.UTC(),
				ev.Mode,
				ev.Target,
				day,
				int64(ev.Value),
				from,
				to,
				uint16(ev.Lookback),
				ev.Version,
			)
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, forecastColumns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert forecasts: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseForecastStore) Close() error {
	return nil // Managed by pkg
}

func forecastTable(database string) string {
	if database == "" {
		return "forecasts"
	}
	return database + ".forecasts"
}

func parseDay(s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("forecast event date %q: %w", s, err)
	}
	return d, nil
}
