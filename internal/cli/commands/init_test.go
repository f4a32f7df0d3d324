package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/exocat/internal/cli/config"
	clitest "github.com/leapstack-labs/exocat/internal/cli/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name      string
		setupDir  func(t *testing.T, dir string) // setup before running
		args      []string
		wantErr   bool
		wantFiles []string
	}{
		{
			name:      "init empty directory",
			wantFiles: []string{"exocat.yaml", "data"},
		},
		{
			name:      "init named subdirectory",
			args:      []string{"catalog"},
			wantFiles: []string{"catalog/exocat.yaml", "catalog/data"},
		},
		{
			name: "init existing config without force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "exocat.yaml"), []byte("existing"), 0o600)
			},
			wantErr: true,
		},
		{
			name: "init existing config with force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "exocat.yaml"), []byte("existing"), 0o600)
			},
			args:      []string{"--force"},
			wantFiles: []string{"exocat.yaml", "data"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			t.Chdir(tmpDir)

			if tt.setupDir != nil {
				tt.setupDir(t, tmpDir)
			}

			_, _, err := execute(t, NewInitCommand(), clitest.NewTestConfig(tmpDir), tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			for _, f := range tt.wantFiles {
				_, err := os.Stat(filepath.Join(tmpDir, f))
				assert.False(t, os.IsNotExist(err), "expected file/dir %q to exist", f)
			}
		})
	}
}

func TestInitCreatesValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	_, _, err := execute(t, NewInitCommand(), clitest.NewTestConfig(tmpDir))
	require.NoError(t, err)

	content, err := os.ReadFile(config.FileName)
	require.NoError(t, err)
	for _, expected := range []string{
		"# exocat project configuration",
		"data_dir: data",
		"store: .exocat/exocat.db",
		"  addr: ",
		"127.0.0.1:8470",
		"  type: duckdb",
		"  table: exoplanets",
	} {
		assert.Contains(t, string(content), expected, "config should contain %q", expected)
	}
	assert.NotContains(t, string(content), "session_secret:")

	// The written file loads back to the built-in defaults.
	cfg, err := config.Load(config.FileName, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "data"), cfg.DataDir)
	assert.Equal(t, config.DefaultQueryLimit, cfg.Query.Limit)
	assert.Equal(t, config.DefaultTable, cfg.Publish.Table)
	assert.Equal(t, config.DefaultSinkType, cfg.Publish.Type)
}
