package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/exocat/internal/cli/output"
	"github.com/leapstack-labs/exocat/internal/sink"
	"github.com/leapstack-labs/exocat/internal/store"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// nested keys: EXOCAT_SERVE__ADDR sets serve.addr.
const EnvPrefix = "EXOCAT_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

type (
	loggerKey struct{}
	configKey struct{}
)

// flagKeys maps global flag names to config keys. Other flags are ignored.
var flagKeys = map[string]string{
	"data-dir": "data_dir",
	"store":    "store",
	"output":   "output",
	"verbose":  "verbose",
}

// pathFlags are resolved against the working directory rather than the project root.
var pathFlags = []string{"data-dir", "store"}

func configIn(dir string) string {
	for _, name := range []string{FileName, "exocat.yml"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findConfigUpward searches upward from startDir for a config file.
func findConfigUpward(startDir string) string {
	dir := startDir
	for range maxUpwardSearchLevels {
		if found := configIn(dir); found != "" {
			return found
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == store.MemoryPath || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Load reads configuration. cfgFile names an explicit config file, which must
// exist; when empty, exocat.yaml is searched for upward from the working
// directory. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	path := cfgFile
	if path == "" {
		path = findConfigUpward(cwd)
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	projectRoot := cwd
	if path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
			projectRoot = filepath.Dir(abs)
		}
	}

	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// 3. Environment
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only the ones set explicitly
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = projectRoot
	cfg.File = path

	// Paths given on the command line are relative to where the user typed
	// them; everything else is anchored at the project root.
	cfg.DataDir = resolvePathRelativeTo(cfg.DataDir, projectRoot)
	cfg.StorePath = resolvePathRelativeTo(cfg.StorePath, projectRoot)
	cfg.Publish.Path = resolvePathRelativeTo(cfg.Publish.Path, projectRoot)
	if flags != nil {
		for _, name := range pathFlags {
			if !flags.Changed(name) {
				continue
			}
			v, _ := flags.GetString(name)
			switch name {
			case "data-dir":
				cfg.DataDir = resolvePathRelativeTo(v, cwd)
			case "store":
				cfg.StorePath = resolvePathRelativeTo(v, cwd)
			}
		}
	}

	expandPublishEnvVars(&cfg.Publish)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be checked by decoding alone.
func (c *Config) Validate() error {
	if _, err := output.ParseMode(c.OutputFormat); err != nil {
		return err
	}
	if c.Query.Limit < 0 {
		return fmt.Errorf("query.limit must not be negative, got %d", c.Query.Limit)
	}
	if c.Serve.MaxConns <= 0 {
		return fmt.Errorf("serve.max_conns must be positive, got %d", c.Serve.MaxConns)
	}
	if c.Publish.Type == "" {
		return fmt.Errorf("publish.type is required\nHint: set publish.type in %s or pass --target", FileName)
	}
	return nil
}

var envVar = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns. Unset variables are left as written.
func expandEnvVars(s string) string {
	return envVar.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

func expandPublishEnvVars(p *PublishConfig) {
	p.Host = expandEnvVars(p.Host)
	p.Database = expandEnvVars(p.Database)
	p.Username = expandEnvVars(p.Username)
	p.Password = expandEnvVars(p.Password)
}

// NewLogger returns a text logger on w, at debug level when verbose.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config stored by WithConfig. Without one it
// loads from the working directory, falling back to the built-in defaults.
func FromContext(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	if c, err := Load("", nil); err == nil {
		return c
	}
	return &Config{
		DataDir:      DefaultDataDir,
		StorePath:    DefaultStorePath,
		OutputFormat: DefaultOutput,
		Query:        QueryConfig{Limit: DefaultQueryLimit},
		Serve:        ServeConfig{Addr: DefaultAddr, MaxConns: DefaultMaxConns},
		Publish: PublishConfig{
			Config: sink.Config{Type: DefaultSinkType, Path: DefaultSinkPath},
			Table:  DefaultTable,
		},
	}
}
