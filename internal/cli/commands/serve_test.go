package commands

import (
	"context"
	"testing"
	"time"

	"github.com/leapstack-labs/exocat/internal/source"
	"github.com/leapstack-labs/exocat/internal/store"
	"github.com/leapstack-labs/exocat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCommand_WatchNeedsFile(t *testing.T) {
	for _, args := range [][]string{{"--watch"}, {"demo:kepler", "--watch"}, {"-", "--watch"}} {
		cfg, _ := setupProject(t)
		_, _, err := execute(t, NewServeCommand(), cfg, args...)
		require.Error(t, err, "args %v", args)
		assert.Contains(t, err.Error(), "--watch needs a file reference")
	}
}

func TestServeCommand_StopsOnCancel(t *testing.T) {
	cfg, export := setupProject(t)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, stderr, err := executeContext(ctx, t, NewServeCommand(), cfg, export, "--addr", "127.0.0.1:0", "--watch")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Serving on http://127.0.0.1:0")
	assert.Contains(t, stderr, "4 records")
	assert.Contains(t, stderr, "session_secret is not set")

	assert.Len(t, storedEntries(t, cfg.StorePath), 1, "initial dataset is saved")
}

func TestServeCommand_BadAddress(t *testing.T) {
	cfg, _ := setupProject(t)
	cfg.Serve.SessionSecret = "secret"

	_, stderr, err := execute(t, NewServeCommand(), cfg, "demo:kepler", "--addr", "not-an-address")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen not-an-address")
	assert.NotContains(t, stderr, "session_secret")
}

func TestInitialDataset(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(store.MemoryPath, testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	require.NoError(t, st.Migrate(ctx))
	resolver := source.NewResolver(t.TempDir(), nil)

	ds, err := initialDataset(ctx, resolver, st, "")
	require.NoError(t, err)
	assert.Nil(t, ds, "empty store starts without a dataset")

	loaded, err := initialDataset(ctx, resolver, st, "demo:tess")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	latest, err := initialDataset(ctx, resolver, st, "")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, loaded.ID, latest.ID)

	_, err = initialDataset(ctx, resolver, st, "missing.csv")
	assert.ErrorContains(t, err, "failed to load missing.csv")
}
