// Package duckdb publishes catalog records into a DuckDB database file.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/exocat/internal/sink"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Dialect is DuckDB's SQL flavour.
var Dialect = sink.Dialect{
	Name:        "duckdb",
	Placeholder: sink.QuestionPlaceholder,
	FloatType:   "DOUBLE",
}

// Sink implements sink.Sink for DuckDB.
type Sink struct {
	sink.BaseSQLSink
}

// New creates a DuckDB sink. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sink{BaseSQLSink: sink.BaseSQLSink{Logger: logger, Dialect: Dialect}}
}

// Connect opens the database at cfg.Path. An empty path is in-memory.
func (s *Sink) Connect(ctx context.Context, cfg sink.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	s.Logger.Debug("connecting to duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	s.DB = db
	s.Cfg = cfg
	return nil
}

// Count returns the number of rows in table.
func (s *Sink) Count(ctx context.Context, table string) (int64, error) {
	if s.DB == nil {
		return 0, sink.ErrNotConnected
	}
	if err := sink.ValidateTableName(table); err != nil {
		return 0, err
	}
	var n int64
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil { //nolint:gosec // table name is validated
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func init() {
	sink.Register("duckdb", func(logger *slog.Logger) sink.Sink { return New(logger) })
}

var _ sink.Sink = (*Sink)(nil)
