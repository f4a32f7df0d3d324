// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/exocat/internal/cli/config"
	"github.com/leapstack-labs/exocat/internal/cli/output"
	"github.com/leapstack-labs/exocat/internal/sink"
)

// KeplerExport is a small file in the archive's Kepler KOI layout.
const KeplerExport = `kepid,kepoi_name,kepler_name,koi_disposition,koi_period,koi_prad,koi_model_snr
11904151,K00072.01,Kepler-10 b,CONFIRMED,0.837495,1.47,54.4
10797460,K00752.01,,CANDIDATE,9.488036,2.26,35.8
10854555,K00755.01,Kepler-664 b,CONFIRMED,2.525592,2.75,
10872983,K00756.01,,FALSE POSITIVE,11.094321,,12.1
`

// SetupTestProject creates a temporary project with an exocat.yaml and a
// Kepler export under data/. It returns the project directory.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	dataDir := filepath.Join(dir, config.DefaultDataDir)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("failed to create directory %s: %v", dataDir, err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "kepler_koi.csv"), []byte(KeplerExport), 0o644); err != nil {
		t.Fatalf("failed to create kepler_koi.csv: %v", err)
	}

	cfg := `data_dir: data
store: .exocat/exocat.db
output: json
publish:
  type: duckdb
  path: out.duckdb
  table: exoplanets
`
	if err := os.WriteFile(filepath.Join(dir, config.FileName), []byte(cfg), 0o644); err != nil {
		t.Fatalf("failed to create %s: %v", config.FileName, err)
	}

	return dir
}

// NewTestConfig returns a configuration rooted at dir with every path inside
// it and JSON output.
func NewTestConfig(dir string) *config.Config {
	return &config.Config{
		ProjectRoot:  dir,
		DataDir:      filepath.Join(dir, config.DefaultDataDir),
		StorePath:    filepath.Join(dir, ".exocat", "exocat.db"),
		OutputFormat: string(output.ModeJSON),
		Query:        config.QueryConfig{Limit: config.DefaultQueryLimit},
		Serve:        config.ServeConfig{Addr: config.DefaultAddr, MaxConns: config.DefaultMaxConns},
		Publish: config.PublishConfig{
			Config: sink.Config{Type: config.DefaultSinkType, Path: filepath.Join(dir, config.DefaultSinkPath)},
			Table:  config.DefaultTable,
		},
	}
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererText creates a new test renderer in text mode without a TTY.
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// NewTestRendererCSV creates a new test renderer in CSV mode.
func NewTestRendererCSV() *TestRenderer {
	return NewTestRenderer(output.ModeCSV, false)
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// CSVLines splits CSV output into trimmed, non-empty lines.
func CSVLines(s string) []string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
