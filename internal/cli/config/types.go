// Package config loads exocat CLI configuration.
//
// Values are layered, lowest to highest: built-in defaults, exocat.yaml,
// EXOCAT_* environment variables, then explicitly set command-line flags.
package config

import (
	"github.com/leapstack-labs/exocat/internal/sink"
)

// FileName is the configuration file looked up in the project root.
const FileName = "exocat.yaml"

// Default configuration values.
const (
	DefaultDataDir    = "data"
	DefaultStorePath  = ".exocat/exocat.db"
	DefaultOutput     = "auto" // TTY=text, otherwise markdown
	DefaultAddr       = "127.0.0.1:8470"
	DefaultMaxConns   = 64
	DefaultQueryLimit = 50
	DefaultSinkType   = "duckdb"
	DefaultSinkPath   = "exocat.duckdb"
	DefaultTable      = "exoplanets"
)

// Config holds all CLI configuration options.
type Config struct {
	// ProjectRoot anchors relative paths. It is the directory holding the
	// config file, or the working directory when there is none.
	ProjectRoot  string        `koanf:"-" yaml:"-"`
	File         string        `koanf:"-" yaml:"-"` // config file used, if any
	DataDir      string        `koanf:"data_dir" yaml:"data_dir"`
	StorePath    string        `koanf:"store" yaml:"store"`
	Verbose      bool          `koanf:"verbose" yaml:"verbose,omitempty"`
	OutputFormat string        `koanf:"output" yaml:"output"`
	Query        QueryConfig   `koanf:"query" yaml:"query"`
	Serve        ServeConfig   `koanf:"serve" yaml:"serve"`
	Publish      PublishConfig `koanf:"publish" yaml:"publish"`
}

// QueryConfig holds defaults for query output.
type QueryConfig struct {
	Limit int `koanf:"limit" yaml:"limit"`
}

// ServeConfig holds configuration for the HTTP server.
type ServeConfig struct {
	Addr          string `koanf:"addr" yaml:"addr"`
	SessionSecret string `koanf:"session_secret" yaml:"session_secret,omitempty"`
	MaxConns      int    `koanf:"max_conns" yaml:"max_conns"`
}

// PublishConfig is the default publish target.
type PublishConfig struct {
	sink.Config `koanf:",squash" yaml:",inline"`
	Table       string `koanf:"table" yaml:"table"`
}

// Defaults returns the built-in configuration.
func Defaults() map[string]any {
	return map[string]any{
		"data_dir":        DefaultDataDir,
		"store":           DefaultStorePath,
		"verbose":         false,
		"output":          DefaultOutput,
		"query.limit":     DefaultQueryLimit,
		"serve.addr":      DefaultAddr,
		"serve.max_conns": DefaultMaxConns,
		"publish.type":    DefaultSinkType,
		"publish.path":    DefaultSinkPath,
		"publish.table":   DefaultTable,
	}
}
