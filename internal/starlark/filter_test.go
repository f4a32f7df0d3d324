package starlark

import (
	"sync"
	"testing"

	"github.com/leapstack-labs/exocat/internal/testutil"
	"github.com/leapstack-labs/exocat/pkg/catalog"
	"github.com/leapstack-labs/exocat/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

var (
	tenB = catalog.Record{
		Mission: "Kepler", ID: "1", Name: "Kepler-10 b", Host: "Kepler-10", Disposition: "CONFIRMED",
		Period: catalog.Some(0.837), Radius: catalog.Some(1.42), SNR: catalog.Some(25),
	}
	toi = catalog.Record{
		Mission: "TESS", ID: "2", Name: "TOI-700 d", Disposition: "PC",
		Period: catalog.Some(37.4),
	}
)

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"empty", "   "},
		{"syntax", "radius >"},
		{"statement", "x = 1"},
		{"unknown name", "mass > 1"},
		{"wrapper escape", "1), (2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.expr, nil)
			var compileErr *CompileError
			require.ErrorAs(t, err, &compileErr)
		})
	}
}

func TestFilter_Eval(t *testing.T) {
	tests := []struct {
		expr string
		rec  catalog.Record
		want bool
	}{
		{`mission == "Kepler"`, tenB, true},
		{`confirmed and radius < 2`, tenB, true},
		{`confirmed`, toi, false},
		{`radius == None`, toi, true},
		{`known(snr)`, toi, false},
		{`between(period, 30, 40)`, toi, true},
		{`between(radius, 0, 10)`, toi, false},
		{`name.startswith("TOI")`, toi, true},
		{`"kepler" in host.lower()`, tenB, true},
		{`period`, tenB, true},
		{`snr * 0`, tenB, false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := Compile(tt.expr, testutil.NewTestLogger(t))
			require.NoError(t, err)
			got, err := f.Eval(tt.rec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.expr, f.String())
		})
	}
}

func TestFilter_RuntimeErrorsExcludeAndCount(t *testing.T) {
	f, err := Compile("radius > 1", testutil.NewTestLogger(t))
	require.NoError(t, err)

	_, err = f.Eval(toi)
	assert.ErrorContains(t, err, "record 2")

	assert.True(t, f.Match(tenB))
	assert.False(t, f.Match(toi))
	assert.False(t, f.Match(toi))
	assert.EqualValues(t, 2, f.Errors())
}

func TestFilter_StepLimit(t *testing.T) {
	f, err := Compile("len([x for x in range(1000000)]) > 0", nil)
	require.NoError(t, err)

	assert.False(t, f.Match(tenB))
	assert.EqualValues(t, 1, f.Errors())

	thread := f.pool.Get("again")
	assert.Zero(t, thread.Steps)
}

func TestFilter_WithQuery(t *testing.T) {
	f, err := Compile(`mission == "TESS" or snr > 20`, nil)
	require.NoError(t, err)

	got := query.ApplyWith([]catalog.Record{toi, tenB}, query.Default(), f.Predicate())
	require.Len(t, got, 2)
	assert.Equal(t, "Kepler-10 b", got[0].Name)

	got = query.ApplyWith([]catalog.Record{toi, tenB}, query.Default().WithConfirmedOnly(true), f.Predicate())
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
}

func TestFilter_Concurrent(t *testing.T) {
	f, err := Compile("confirmed", nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, f.Match(tenB))
			assert.False(t, f.Match(toi))
		}()
	}
	wg.Wait()
	assert.Zero(t, f.Errors())
}

func TestRecordArgs(t *testing.T) {
	args := RecordArgs(toi)
	require.Len(t, args, len(RecordParams))
	assert.Equal(t, starlark.String("TESS"), args[0])
	assert.Equal(t, starlark.False, args[5])
	assert.Equal(t, starlark.Float(37.4), args[6])
	assert.Equal(t, starlark.None, args[7])
}
