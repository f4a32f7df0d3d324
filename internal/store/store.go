// Package store persists loaded datasets in SQLite so earlier loads can be
// listed and queried again without the original file.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/exocat/pkg/catalog"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// timeLayout is fixed-width so loaded_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Errors returned by Store.
var (
	ErrNotFound = errors.New("dataset not found")
	ErrNotOpen  = errors.New("database not opened")
)

// Entry describes a stored dataset without its records.
type Entry struct {
	ID       string         `json:"id"`
	Source   string         `json:"source"`
	Schema   catalog.Schema `json:"schema"`
	Columns  int            `json:"columns"`
	Rows     int            `json:"rows"`
	LoadedAt time.Time      `json:"loaded_at"`
}

// Store is a SQLite-backed dataset history.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open connects to the database at path and pings it. Migrate must be called
// before use.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path != MemoryPath {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == MemoryPath {
		// Each pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	logger.Debug("opened store", "path", path)
	return &Store{db: db, path: path, logger: logger}, nil
}

// Path returns the path the store was opened with.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveDataset writes ds and its records in one transaction. Saving an ID that
// already exists replaces it.
func (s *Store) SaveDataset(ctx context.Context, ds *catalog.Dataset) (err error) {
	if s.db == nil {
		return ErrNotOpen
	}

	header, err := json.Marshal(ds.Header)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, ds.ID); err != nil {
		return fmt.Errorf("replace dataset: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO datasets (id, source, schema, header, loaded_at, row_count) VALUES (?, ?, ?, ?, ?, ?)`,
		ds.ID, ds.Source, string(ds.Schema), string(header), ds.LoadedAt.UTC().Format(timeLayout), len(ds.Records),
	)
	if err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (dataset_id, ordinal, mission, id, name, host, disposition, period, radius, snr)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare record insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range ds.Records {
		_, err = stmt.ExecContext(ctx, ds.ID, i, r.Mission, r.ID, r.Name, r.Host, r.Disposition,
			r.Period.Ptr(), r.Radius.Ptr(), r.SNR.Ptr())
		if err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit dataset: %w", err)
	}
	s.logger.Debug("saved dataset", "id", ds.ID, "source", ds.Source, "rows", len(ds.Records))
	return nil
}

// GetDataset loads a dataset and its records by ID.
func (s *Store) GetDataset(ctx context.Context, id string) (*catalog.Dataset, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, schema, header, loaded_at, row_count FROM datasets WHERE id = ?`, id)
	return s.loadDataset(ctx, row)
}

// LatestDataset loads the most recently loaded dataset.
func (s *Store) LatestDataset(ctx context.Context) (*catalog.Dataset, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, schema, header, loaded_at, row_count FROM datasets ORDER BY loaded_at DESC, rowid DESC LIMIT 1`)
	return s.loadDataset(ctx, row)
}

func (s *Store) loadDataset(ctx context.Context, row *sql.Row) (*catalog.Dataset, error) {
	var (
		ds       catalog.Dataset
		schema   string
		header   string
		loadedAt string
		rowCount int
	)
	err := row.Scan(&ds.ID, &ds.Source, &schema, &header, &loadedAt, &rowCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}

	ds.Schema = catalog.Schema(schema)
	if err := json.Unmarshal([]byte(header), &ds.Header); err != nil {
		return nil, fmt.Errorf("decode header of %s: %w", ds.ID, err)
	}
	if ds.LoadedAt, err = time.Parse(timeLayout, loadedAt); err != nil {
		return nil, fmt.Errorf("decode loaded_at of %s: %w", ds.ID, err)
	}

	ds.Records, err = s.records(ctx, ds.ID, rowCount)
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

func (s *Store) records(ctx context.Context, datasetID string, capacity int) ([]catalog.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT mission, id, name, host, disposition, period, radius, snr
		 FROM records WHERE dataset_id = ? ORDER BY ordinal`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]catalog.Record, 0, capacity)
	for rows.Next() {
		var (
			r                   catalog.Record
			period, radius, snr sql.NullFloat64
		)
		if err := rows.Scan(&r.Mission, &r.ID, &r.Name, &r.Host, &r.Disposition, &period, &radius, &snr); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		r.Period = nullNumber(period)
		r.Radius = nullNumber(radius)
		r.SNR = nullNumber(snr)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return out, nil
}

func nullNumber(n sql.NullFloat64) catalog.Number {
	if !n.Valid {
		return catalog.Number{}
	}
	return catalog.Some(n.Float64)
}

// ListDatasets returns stored datasets, newest first. A non-positive limit
// returns all of them.
func (s *Store) ListDatasets(ctx context.Context, limit int) ([]Entry, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, schema, header, loaded_at, row_count
		 FROM datasets ORDER BY loaded_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			schema   string
			header   string
			loadedAt string
		)
		if err := rows.Scan(&e.ID, &e.Source, &schema, &header, &loadedAt, &e.Rows); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		var cols []string
		if err := json.Unmarshal([]byte(header), &cols); err != nil {
			return nil, fmt.Errorf("decode header of %s: %w", e.ID, err)
		}
		e.Schema = catalog.Schema(schema)
		e.Columns = len(cols)
		if e.LoadedAt, err = time.Parse(timeLayout, loadedAt); err != nil {
			return nil, fmt.Errorf("decode loaded_at of %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteDataset removes a dataset and its records.
func (s *Store) DeleteDataset(ctx context.Context, id string) error {
	if s.db == nil {
		return ErrNotOpen
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
