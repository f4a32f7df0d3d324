package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("data-dir", "", "")
	fs.String("store", "", "")
	fs.StringP("output", "o", "", "")
	fs.BoolP("verbose", "v", false, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "", cfg.File)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, DefaultDataDir), cfg.DataDir)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, DefaultStorePath), cfg.StorePath)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, DefaultQueryLimit, cfg.Query.Limit)
	assert.Equal(t, DefaultAddr, cfg.Serve.Addr)
	assert.Equal(t, DefaultMaxConns, cfg.Serve.MaxConns)
	assert.Equal(t, DefaultSinkType, cfg.Publish.Type)
	assert.Equal(t, DefaultTable, cfg.Publish.Table)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, DefaultSinkPath), cfg.Publish.Path)
}

func TestLoad_FileFoundUpward(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
data_dir: catalogs
store: ":memory:"
output: json
query:
  limit: 10
serve:
  addr: ":9000"
publish:
  type: postgres
  host: db.internal
  port: 6543
  database: astro
  table: planets
  options:
    sslmode: require
`)
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	t.Chdir(nested)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, FileName), cfg.File)
	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(root, "catalogs"), cfg.DataDir)
	assert.Equal(t, ":memory:", cfg.StorePath)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, 10, cfg.Query.Limit)
	assert.Equal(t, ":9000", cfg.Serve.Addr)
	assert.Equal(t, DefaultMaxConns, cfg.Serve.MaxConns)
	assert.Equal(t, "postgres", cfg.Publish.Type)
	assert.Equal(t, "db.internal", cfg.Publish.Host)
	assert.Equal(t, 6543, cfg.Publish.Port)
	assert.Equal(t, "astro", cfg.Publish.Database)
	assert.Equal(t, "planets", cfg.Publish.Table)
	assert.Equal(t, map[string]string{"sslmode": "require"}, cfg.Publish.Options)
}

func TestLoad_Precedence(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, root, "output: markdown\ndata_dir: from-file\nserve:\n  max_conns: 8\n")
	t.Chdir(t.TempDir())

	t.Run("file over defaults", func(t *testing.T) {
		cfg, err := Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "markdown", cfg.OutputFormat)
		assert.Equal(t, 8, cfg.Serve.MaxConns)
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("EXOCAT_OUTPUT", "csv")
		t.Setenv("EXOCAT_SERVE__MAX_CONNS", "16")
		cfg, err := Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "csv", cfg.OutputFormat)
		assert.Equal(t, 16, cfg.Serve.MaxConns)
	})

	t.Run("flag over env", func(t *testing.T) {
		t.Setenv("EXOCAT_OUTPUT", "csv")
		fs := newFlags()
		require.NoError(t, fs.Parse([]string{"-o", "json", "--data-dir", "local"}))

		cfg, err := Load(path, fs)
		require.NoError(t, err)
		assert.Equal(t, "json", cfg.OutputFormat)

		cwd, _ := os.Getwd()
		assert.Equal(t, filepath.Join(cwd, "local"), cfg.DataDir)
	})

	t.Run("unset flag keeps env", func(t *testing.T) {
		t.Setenv("EXOCAT_OUTPUT", "csv")
		fs := newFlags()
		require.NoError(t, fs.Parse(nil))

		cfg, err := Load(path, fs)
		require.NoError(t, err)
		assert.Equal(t, "csv", cfg.OutputFormat)
		assert.Equal(t, filepath.Join(root, "from-file"), cfg.DataDir)
	})
}

func TestLoad_Errors(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad output", "output: yaml\n", "invalid output mode"},
		{"negative limit", "query:\n  limit: -1\n", "query.limit"},
		{"zero conns", "serve:\n  max_conns: 0\n", "serve.max_conns"},
		{"empty publish type", "publish:\n  type: \"\"\n", "publish.type is required"},
		{"malformed yaml", "output: [\n", "error reading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)
			_, err := Load(path, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
		assert.ErrorContains(t, err, "nope.yaml")
	})
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("EXOCAT_TEST_PASSWORD", "s3cret")

	tests := []struct {
		in   string
		want string
	}{
		{"${EXOCAT_TEST_PASSWORD}", "s3cret"},
		{"pre-${EXOCAT_TEST_PASSWORD}-post", "pre-s3cret-post"},
		{"${EXOCAT_TEST_UNSET}", "${EXOCAT_TEST_UNSET}"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, expandEnvVars(tt.in))
	}
}

func TestLoad_ExpandsPublishSecrets(t *testing.T) {
	t.Setenv("EXOCAT_TEST_PASSWORD", "s3cret")
	t.Chdir(t.TempDir())
	path := writeConfig(t, t.TempDir(), "publish:\n  type: postgres\n  password: ${EXOCAT_TEST_PASSWORD}\n")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Publish.Password)
}

func TestLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	var buf bytes.Buffer
	quiet := NewLogger(&buf, false)
	quiet.Info("hidden")
	quiet.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	loud := NewLogger(&buf, true)
	ctx := WithLogger(context.Background(), loud)
	GetLogger(ctx).Debug("detail")
	assert.Contains(t, buf.String(), "detail")
}
