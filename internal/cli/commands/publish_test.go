package commands

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/exocat/internal/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countRows(t *testing.T, path, table string) int {
	t.Helper()
	db, err := sql.Open("duckdb", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestPublishCommand_DuckDB(t *testing.T) {
	cfg, export := setupProject(t)

	out, _, err := execute(t, NewPublishCommand(), cfg, export)
	require.NoError(t, err)

	var res struct {
		Sink  string `json:"sink"`
		Table string `json:"table"`
		Rows  int    `json:"rows"`
	}
	decodeJSON(t, out, &res)
	assert.Equal(t, "duckdb", res.Sink)
	assert.Equal(t, "exoplanets", res.Table)
	assert.Equal(t, 4, res.Rows)
	assert.Equal(t, 4, countRows(t, cfg.Publish.Path, "exoplanets"))

	// Publishing again replaces the rows instead of appending.
	other := filepath.Join(t.TempDir(), "other.duckdb")
	_, _, err = execute(t, NewPublishCommand(), cfg, "demo:kepler", "--path", other, "--table", "planets")
	require.NoError(t, err)
	_, _, err = execute(t, NewPublishCommand(), cfg, "demo:tess", "--path", other, "--table", "planets")
	require.NoError(t, err)
	assert.Equal(t, 1, countRows(t, other, "planets"))
}

func TestPublishCommand_FromStore(t *testing.T) {
	cfg, _ := setupProject(t)

	_, _, err := execute(t, NewLoadCommand(), cfg, "demo:kepler")
	require.NoError(t, err)

	_, _, err = execute(t, NewPublishCommand(), cfg, "--from-store", "latest")
	require.NoError(t, err)
	assert.Equal(t, 2, countRows(t, cfg.Publish.Path, "exoplanets"))
}

func TestPublishCommand_Errors(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, err error)
	}{
		{
			name: "unknown target",
			args: []string{"demo:kepler", "--target", "oracle"},
			check: func(t *testing.T, err error) {
				var unknown *sink.UnknownSinkError
				require.ErrorAs(t, err, &unknown)
				assert.Equal(t, []string{"duckdb", "postgres"}, unknown.Available)
			},
		},
		{
			name: "invalid table",
			args: []string{"demo:kepler", "--table", "drop table x"},
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "invalid table name")
			},
		},
		{
			name: "ref and store",
			args: []string{"demo:kepler", "--from-store", "latest"},
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "not both")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := setupProject(t)
			_, _, err := execute(t, NewPublishCommand(), cfg, tt.args...)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}
