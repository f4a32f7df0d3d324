// Package csvtext reads and writes comma-separated text.
//
// The reader is deliberately permissive: it never fails, accepts unterminated
// quotes, and drops blank rows, so loosely formatted catalog exports still
// produce a usable row sequence.
package csvtext

import "strings"

// Parse splits text into rows of fields.
//
// A double quote toggles quoted state; inside quotes a doubled quote is a
// literal quote and commas, CR and LF are content. Outside quotes a comma ends
// the field, CR is dropped and LF ends the row. Rows whose fields are all blank
// after trimming are omitted.
func Parse(text string) [][]string {
	var (
		rows     [][]string
		row      []string
		field    strings.Builder
		inQuotes bool
	)

	pushField := func() {
		row = append(row, field.String())
		field.Reset()
	}
	pushRow := func() {
		rows = append(rows, row)
		row = nil
	}

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inQuotes {
			if c == '"' {
				if i+1 < len(text) && text[i+1] == '"' {
					field.WriteByte('"')
					i++
					continue
				}
				inQuotes = false
				continue
			}
			field.WriteByte(c)
			continue
		}

		switch c {
		case '"':
			inQuotes = true
		case ',':
			pushField()
		case '\r':
		case '\n':
			pushField()
			pushRow()
		default:
			field.WriteByte(c)
		}
	}

	if field.Len() > 0 || len(row) > 0 {
		pushField()
		pushRow()
	}

	return dropBlankRows(rows)
}

// dropBlankRows filters rows in place, keeping order.
func dropBlankRows(rows [][]string) [][]string {
	out := rows[:0]
	for _, r := range rows {
		if !IsBlankRow(r) {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// IsBlankRow reports whether every field in r is empty after trimming.
func IsBlankRow(r []string) bool {
	for _, f := range r {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
