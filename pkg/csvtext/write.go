package csvtext

import (
	"bufio"
	"io"
	"strings"
)

// Escape quotes a field when it contains a double quote, a comma or a newline.
// Inner quotes are doubled.
func Escape(field string) string {
	if strings.ContainsAny(field, "\",\n") {
		return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
	}
	return field
}

// JoinRow escapes each field and joins them with commas.
func JoinRow(fields []string) string {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = Escape(f)
	}
	return strings.Join(escaped, ",")
}

// Join renders rows as text with LF line endings and no trailing newline.
func Join(rows [][]string) string {
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = JoinRow(r)
	}
	return strings.Join(lines, "\n")
}

// Writer writes escaped rows to an underlying io.Writer.
type Writer struct {
	w       *bufio.Writer
	started bool
}

// NewWriter returns a Writer that buffers output to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write writes a single row. Rows are separated by LF.
func (w *Writer) Write(fields []string) error {
	if w.started {
		if err := w.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	w.started = true
	_, err := w.w.WriteString(JoinRow(fields))
	return err
}

// Flush writes a trailing newline after the last row and flushes the buffer.
func (w *Writer) Flush() error {
	if w.started {
		if err := w.w.WriteByte('\n'); err != nil {
			return err
		}
		w.started = false
	}
	return w.w.Flush()
}
