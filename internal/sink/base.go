package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/leapstack-labs/exocat/pkg/catalog"
)

// ErrNotConnected is returned by operations on a sink without a connection.
var ErrNotConnected = errors.New("database connection not established")

// Dialect holds the SQL differences between sinks.
type Dialect struct {
	Name string
	// Placeholder renders the nth (1-based) bind parameter.
	Placeholder func(n int) string
	// FloatType is the column type for numeric fields.
	FloatType string
}

// QuestionPlaceholder renders "?" for every parameter.
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder renders "$n".
func DollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

// Columns are the published column names in insert order.
var Columns = []string{
	"mission", "id", "name", "host", "disposition", "confirmed", "period_days", "radius_re", "snr",
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidateTableName accepts plain or schema-qualified SQL identifiers.
func ValidateTableName(table string) error {
	if !tableName.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

// BaseSQLSink implements Publish and Close over database/sql. Concrete sinks
// embed it and set DB in Connect.
type BaseSQLSink struct {
	DB      *sql.DB
	Cfg     Config
	Logger  *slog.Logger
	Dialect Dialect
}

// Close closes the database connection.
func (b *BaseSQLSink) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection", "sink", b.Dialect.Name)
		}
		return b.DB.Close()
	}
	return nil
}

// IsConnected reports whether Connect has succeeded.
func (b *BaseSQLSink) IsConnected() bool {
	return b.DB != nil
}

// CreateTableSQL returns the DDL for table.
func (b *BaseSQLSink) CreateTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	mission TEXT,
	id TEXT,
	name TEXT,
	host TEXT,
	disposition TEXT,
	confirmed BOOLEAN,
	period_days %[2]s,
	radius_re %[2]s,
	snr %[2]s
)`, table, b.Dialect.FloatType)
}

// InsertSQL returns the parameterized insert for table.
func (b *BaseSQLSink) InsertSQL(table string) string {
	marks := make([]string, len(Columns))
	for i := range Columns {
		marks[i] = b.Dialect.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(Columns, ", "), strings.Join(marks, ", "))
}

// Publish replaces table's rows with records in a single transaction.
func (b *BaseSQLSink) Publish(ctx context.Context, table string, records []catalog.Record) (n int, err error) {
	if b.DB == nil {
		return 0, ErrNotConnected
	}
	if err := ValidateTableName(table); err != nil {
		return 0, err
	}

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, b.CreateTableSQL(table)); err != nil {
		return 0, fmt.Errorf("create table %s: %w", table, err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return 0, fmt.Errorf("clear table %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, b.InsertSQL(table))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range records {
		_, err = stmt.ExecContext(ctx,
			r.Mission, r.ID, r.Name, r.Host, r.Disposition, r.Confirmed(),
			r.Period.Ptr(), r.Radius.Ptr(), r.SNR.Ptr(),
		)
		if err != nil {
			return 0, fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	if b.Logger != nil {
		b.Logger.Info("published records", "sink", b.Dialect.Name, "table", table, "rows", len(records))
	}
	return len(records), nil
}
