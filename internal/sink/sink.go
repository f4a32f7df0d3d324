// Package sink publishes normalized catalog records into external databases.
//
// Concrete sinks live in subpackages and register themselves on import:
//
//	import _ "github.com/leapstack-labs/exocat/internal/sink/duckdb"
package sink

import (
	"context"

	"github.com/leapstack-labs/exocat/pkg/catalog"
)

// Config describes a publish target.
type Config struct {
	Type     string            `koanf:"type" yaml:"type"`
	Path     string            `koanf:"path" yaml:"path,omitempty"`
	Host     string            `koanf:"host" yaml:"host,omitempty"`
	Port     int               `koanf:"port" yaml:"port,omitempty"`
	Database string            `koanf:"database" yaml:"database,omitempty"`
	Username string            `koanf:"username" yaml:"username,omitempty"`
	Password string            `koanf:"password" yaml:"password,omitempty"`
	Options  map[string]string `koanf:"options" yaml:"options,omitempty"`
}

// Sink is a database that can receive a full catalog snapshot.
type Sink interface {
	// Connect opens the connection described by cfg.
	Connect(ctx context.Context, cfg Config) error

	// Publish replaces the contents of table with records and returns the
	// number of rows written. The table is created when missing.
	Publish(ctx context.Context, table string, records []catalog.Record) (int, error)

	// Close releases the connection.
	Close() error
}
