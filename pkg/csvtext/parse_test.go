package csvtext

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [][]string
	}{
		{
			name:  "simple rows",
			input: "a,b,c\n1,2,3",
			want:  [][]string{{"a", "b", "c"}, {"1", "2", "3"}},
		},
		{
			name:  "trailing newline does not add a row",
			input: "a,b\n1,2\n",
			want:  [][]string{{"a", "b"}, {"1", "2"}},
		},
		{
			name:  "crlf line endings",
			input: "a,b\r\n1,2\r\n",
			want:  [][]string{{"a", "b"}, {"1", "2"}},
		},
		{
			name:  "quoted comma",
			input: `name,host` + "\n" + `"Kepler-10 b, the first",Kepler-10`,
			want:  [][]string{{"name", "host"}, {"Kepler-10 b, the first", "Kepler-10"}},
		},
		{
			name:  "quoted newline and carriage return",
			input: "a\n\"line1\r\nline2\"",
			want:  [][]string{{"a"}, {"line1\r\nline2"}},
		},
		{
			name:  "escaped quote",
			input: `"say ""hi""",x`,
			want:  [][]string{{`say "hi"`, "x"}},
		},
		{
			name:  "empty fields are kept",
			input: "mission,snr\nTESS,",
			want:  [][]string{{"mission", "snr"}, {"TESS", ""}},
		},
		{
			name:  "whitespace field preserved",
			input: "a, ,c",
			want:  [][]string{{"a", " ", "c"}},
		},
		{
			name:  "blank lines between rows dropped",
			input: "a,b\n\n\n1,2\n\n",
			want:  [][]string{{"a", "b"}, {"1", "2"}},
		},
		{
			name:  "row of blank fields dropped",
			input: "a,b\n , \n1,2",
			want:  [][]string{{"a", "b"}, {"1", "2"}},
		},
		{
			name:  "unterminated quote flushed",
			input: "a,\"open field\nstill open",
			want:  [][]string{{"a", "open field\nstill open"}},
		},
		{
			name:  "quote in unquoted field toggles state",
			input: `ab"c,d"e,f`,
			want:  [][]string{{"abc,de", "f"}},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
		{
			name:  "utf8 content",
			input: "name\nTOI-700 d ☉",
			want:  [][]string{{"name"}, {"TOI-700 d ☉"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.input))
		})
	}
}

func TestParse_OnlyDelimitersAndBlankLines(t *testing.T) {
	inputs := []string{
		",,,",
		"\n\n\n",
		",\n,,\n\r\n , ,\n",
		"\"\"",
	}
	for _, input := range inputs {
		assert.Empty(t, Parse(input), "input %q", input)
	}
}

func TestParse_RoundTripPlainFields(t *testing.T) {
	rows := [][]string{
		{"mission", "id", "name", "disposition", "period_days", "radius_re", "snr"},
		{"Kepler", "1234567", "Kepler-10 b", "CONFIRMED", "0.837", "1.42", "25"},
		{"TESS", "123456789", "TOI-700 d", "CONFIRMED", "37.4", "1.14", "x"},
	}
	for _, r := range rows {
		got := Parse(JoinRow(r))
		require.Len(t, got, 1)
		assert.Equal(t, r, got[0])
	}
}

func TestParse_RoundTripQuotedFields(t *testing.T) {
	fields := []string{
		"comma, inside",
		"line\nbreak",
		`quote " inside`,
		`""`,
		"all three: \" , \n",
	}
	for _, f := range fields {
		got := Parse("lead," + Escape(f))
		require.Len(t, got, 1, "field %q", f)
		assert.Equal(t, []string{"lead", f}, got[0])
	}
}

func TestEscape(t *testing.T) {
	assert.Equal(t, "plain", Escape("plain"))
	assert.Equal(t, `"a,b"`, Escape("a,b"))
	assert.Equal(t, `"a""b"`, Escape(`a"b`))
	assert.Equal(t, "\"a\nb\"", Escape("a\nb"))
	assert.Equal(t, "", Escape(""))
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Write([]string{"mission", "name"}))
	require.NoError(t, w.Write([]string{"Kepler", "Kepler-10 b, c"}))
	require.NoError(t, w.Flush())

	assert.Equal(t, "mission,name\nKepler,\"Kepler-10 b, c\"\n", buf.String())
	assert.Equal(t, [][]string{{"mission", "name"}, {"Kepler", "Kepler-10 b, c"}}, Parse(buf.String()))
}

func TestJoin(t *testing.T) {
	rows := [][]string{{"a", "b"}, {"1", "x,y"}}
	assert.Equal(t, "a,b\n1,\"x,y\"", Join(rows))
	assert.Equal(t, rows, Parse(Join(rows)))
}
