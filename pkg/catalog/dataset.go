package catalog

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/exocat/pkg/csvtext"
)

const utf8BOM = "\uFEFF"

// Dataset is the result of one load. It is never mutated after construction;
// loading again produces a new Dataset that replaces the old one.
type Dataset struct {
	ID       string    `json:"id"`
	Source   string    `json:"source"`
	Schema   Schema    `json:"schema"`
	Header   []string  `json:"header"`
	Records  []Record  `json:"records"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Load parses text, classifies its header and normalizes every data row.
// Input without data rows, including a header-only file, yields an empty
// dataset tagged SchemaUnknown.
func Load(text, source string) *Dataset {
	return FromRows(csvtext.Parse(text), source)
}

// FromRows runs classification and normalization on rows that were already
// split into fields, such as spreadsheet cells. The first row is the header.
func FromRows(rows [][]string, source string) *Dataset {
	ds := &Dataset{
		ID:       uuid.NewString(),
		Source:   source,
		Schema:   SchemaUnknown,
		Records:  []Record{},
		LoadedAt: time.Now().UTC(),
	}
	if len(rows) == 0 {
		return ds
	}

	header := CleanHeader(rows[0])
	if len(rows) < 2 {
		ds.Header = header
		return ds
	}
	schema := Classify(header)
	idx := NewHeaderIndex(header)

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, Normalize(schema, idx, row))
	}

	ds.Schema = schema
	ds.Header = header
	ds.Records = records
	return ds
}

// CleanHeader returns a copy of header with a leading BOM removed from the
// first cell and surrounding whitespace trimmed from every name.
func CleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

// Summary describes a dataset without its records.
type Summary struct {
	ID        string         `json:"id"`
	Source    string         `json:"source"`
	Schema    Schema         `json:"schema"`
	Columns   int            `json:"columns"`
	Rows      int            `json:"rows"`
	Confirmed int            `json:"confirmed"`
	Missions  map[string]int `json:"missions"`
	LoadedAt  time.Time      `json:"loaded_at"`
}

// Summary computes counts over the dataset.
func (d *Dataset) Summary() Summary {
	s := Summary{
		ID:       d.ID,
		Source:   d.Source,
		Schema:   d.Schema,
		Columns:  len(d.Header),
		Rows:     len(d.Records),
		Missions: make(map[string]int),
		LoadedAt: d.LoadedAt,
	}
	for _, r := range d.Records {
		if r.Confirmed() {
			s.Confirmed++
		}
		s.Missions[r.Mission]++
	}
	return s
}

// MissionNames returns the summary's mission labels sorted, blank last.
func (s Summary) MissionNames() []string {
	names := make([]string, 0, len(s.Missions))
	for m := range s.Missions {
		names = append(names, m)
	}
	sort.Slice(names, func(i, j int) bool {
		if names[i] == "" || names[j] == "" {
			return names[j] == ""
		}
		return names[i] < names[j]
	})
	return names
}
