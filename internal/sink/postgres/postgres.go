// Package postgres publishes catalog records into PostgreSQL through pgx.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/exocat/internal/sink"
)

// Dialect is PostgreSQL's SQL flavour.
var Dialect = sink.Dialect{
	Name:        "postgres",
	Placeholder: sink.DollarPlaceholder,
	FloatType:   "DOUBLE PRECISION",
}

// Sink implements sink.Sink for PostgreSQL.
type Sink struct {
	sink.BaseSQLSink
}

// New creates a PostgreSQL sink. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sink{BaseSQLSink: sink.BaseSQLSink{Logger: logger, Dialect: Dialect}}
}

// Connect parses the DSN built from cfg and opens a database/sql handle
// backed by pgx.
func (s *Sink) Connect(ctx context.Context, cfg sink.Config) error {
	connCfg, err := pgx.ParseConfig(BuildDSN(cfg))
	if err != nil {
		return fmt.Errorf("invalid postgres config: %w", err)
	}

	s.Logger.Debug("connecting to postgres", slog.String("host", connCfg.Host), slog.String("database", connCfg.Database))

	db := stdlib.OpenDB(*connCfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	s.DB = db
	s.Cfg = cfg
	return nil
}

// BuildDSN renders cfg as a key=value connection string.
func BuildDSN(cfg sink.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d sslmode=%s", quoteValue(host), port, quoteValue(sslmode))
	if cfg.Database != "" {
		dsn += " dbname=" + quoteValue(cfg.Database)
	}
	if cfg.Username != "" {
		dsn += " user=" + quoteValue(cfg.Username)
	}
	if cfg.Password != "" {
		dsn += " password=" + quoteValue(cfg.Password)
	}
	return dsn
}

// quoteValue single-quotes v when it contains whitespace, quotes or
// backslashes, escaping the latter two with a backslash.
func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n\r'\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

func init() {
	sink.Register("postgres", func(logger *slog.Logger) sink.Sink { return New(logger) })
}

var _ sink.Sink = (*Sink)(nil)
