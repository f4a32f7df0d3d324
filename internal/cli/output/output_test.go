package output

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func newTestRenderer(mode Mode, isTTY bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, isTTY, mode), out, errOut
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeAuto, false},
		{"auto", ModeAuto, false},
		{"TEXT", ModeText, false},
		{"md", ModeMarkdown, false},
		{"markdown", ModeMarkdown, false},
		{"json", ModeJSON, false},
		{" csv ", ModeCSV, false},
		{"yaml", ModeAuto, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		mode  Mode
		isTTY bool
		want  Mode
	}{
		{ModeAuto, true, ModeText},
		{ModeAuto, false, ModeMarkdown},
		{ModeJSON, true, ModeJSON},
		{ModeText, false, ModeText},
		{"", false, ModeMarkdown},
	}
	for _, tt := range tests {
		r, _, _ := newTestRenderer(tt.mode, tt.isTTY)
		assert.Equal(t, tt.want, r.EffectiveMode(), "mode=%q tty=%v", tt.mode, tt.isTTY)
	}
}

func TestTable(t *testing.T) {
	header := []string{"name", "period"}
	rows := [][]string{{"Kepler-10 b", "0.837"}, {"TOI, d", ""}}

	t.Run("markdown", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeMarkdown, false)
		require.NoError(t, r.Table(header, rows))
		got := out.String()
		assert.Contains(t, got, "| name | period |")
		assert.Contains(t, got, "| Kepler-10 b | 0.837 |")
		assert.False(t, ansi.MatchString(got))
	})

	t.Run("text", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeText, true)
		require.NoError(t, r.Table(header, rows))
		assert.Contains(t, out.String(), "Kepler-10 b")
		assert.Contains(t, out.String(), "NAME")
	})

	t.Run("json", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeJSON, false)
		require.NoError(t, r.Table(header, rows))
		var got []map[string]string
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		assert.Equal(t, []map[string]string{
			{"name": "Kepler-10 b", "period": "0.837"},
			{"name": "TOI, d", "period": ""},
		}, got)
	})

	t.Run("csv", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeCSV, false)
		require.NoError(t, r.Table(header, rows))
		assert.Equal(t, "name,period\nKepler-10 b,0.837\n\"TOI, d\",\n", out.String())
	})
}

func TestStatusGoesToStderrInMachineModes(t *testing.T) {
	for _, mode := range []Mode{ModeJSON, ModeCSV} {
		r, out, errOut := newTestRenderer(mode, false)
		r.Success("loaded")
		r.Header(1, "Summary")
		assert.Empty(t, out.String(), "mode %s", mode)
		assert.Contains(t, errOut.String(), "loaded")
	}

	r, out, _ := newTestRenderer(ModeMarkdown, false)
	r.Header(2, "Summary")
	r.KeyValues([][2]string{{"rows", "2"}, {"schema", "unified"}})
	assert.Equal(t, "## Summary\n\n- **rows**: 2\n- **schema**: unified\n", out.String())
}

func TestNoColorWithoutTTY(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeText, false)
	r.Success("done")
	r.StatusLine("demo:kepler", "success", "2 rows")
	r.Warning("careful")
	combined := out.String() + errOut.String()
	assert.False(t, ansi.MatchString(combined), "%q", combined)
	assert.True(t, strings.Contains(combined, "✓ done"))
}
