package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/exocat/internal/cli/config"
	"github.com/leapstack-labs/exocat/internal/sink"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// sectionComments are written above the matching top-level keys.
var sectionComments = map[string]string{
	"data_dir": "Directory holding the public:kepler and public:tess exports",
	"store":    "SQLite history of loaded datasets",
	"output":   "auto | text | markdown | json | csv",
	"query":    "Defaults for 'exocat query'",
	"serve":    "HTTP server for 'exocat serve'. Set session_secret to keep sessions across restarts.",
	"publish":  "Target for 'exocat publish' (duckdb or postgres). Secrets may use ${ENV_VAR}.",
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create an exocat.yaml project configuration",
		Long: `Initialize an exocat project.

This writes exocat.yaml with the default settings and creates the data
directory that public: samples are read from.`,
		Example: `  # Initialize in the current directory
  exocat init

  # Initialize a new directory, replacing any existing config
  exocat init my-catalog --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(cmd, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	cc := NewCommandContext(cmd)

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
	}

	data, err := initialConfig()
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	dataDir := filepath.Join(dir, config.DefaultDataDir)
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	r := cc.Renderer
	r.Success("Created " + configPath)
	r.StatusLine(dataDir, "success", "place kepler_koi.csv and tess_toi.csv here")
	r.Println()
	r.Println("Next steps:")
	r.Println("  exocat load demo:kepler")
	r.Println("  exocat query --confirmed --sort radius")
	return nil
}

// initialConfig renders the default configuration as commented YAML.
func initialConfig() ([]byte, error) {
	cfg := config.Config{
		DataDir:      config.DefaultDataDir,
		StorePath:    config.DefaultStorePath,
		OutputFormat: config.DefaultOutput,
		Query:        config.QueryConfig{Limit: config.DefaultQueryLimit},
		Serve: config.ServeConfig{
			Addr:     config.DefaultAddr,
			MaxConns: config.DefaultMaxConns,
		},
		Publish: config.PublishConfig{
			Config: sink.Config{Type: config.DefaultSinkType, Path: config.DefaultSinkPath},
			Table:  config.DefaultTable,
		},
	}

	var node yaml.Node
	if err := node.Encode(&cfg); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	node.HeadComment = "exocat project configuration\nEnvironment variables override these values, e.g. EXOCAT_SERVE__ADDR=:8080"
	for i := 0; i+1 < len(node.Content); i += 2 {
		if c, ok := sectionComments[node.Content[i].Value]; ok {
			node.Content[i].HeadComment = c
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}
