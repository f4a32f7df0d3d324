// Package tap converts NASA Exoplanet Archive TAP JSON responses into the
// unified catalog CSV layout.
package tap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/exocat/pkg/catalog"
	"github.com/leapstack-labs/exocat/pkg/csvtext"
)

// SyncEndpoint is the archive's synchronous TAP endpoint.
const SyncEndpoint = "https://exoplanetarchive.ipac.caltech.edu/TAP/sync"

// MaxRecords is requested on every query so full tables fit in one response.
const MaxRecords = 200000

// Mission names an upstream catalog.
type Mission string

// Known missions. The value is what lands in the unified mission column.
const (
	MissionKepler Mission = "Kepler"
	MissionTESS   Mission = "TESS"
)

// Missions lists the supported catalogs.
var Missions = []Mission{MissionKepler, MissionTESS}

// ParseMission resolves a mission name case-insensitively.
func ParseMission(s string) (Mission, error) {
	for _, m := range Missions {
		if strings.EqualFold(strings.TrimSpace(s), string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mission %q (expected Kepler or TESS)", s)
}

var queries = map[Mission]string{
	MissionKepler: `
    SELECT
      kepid           AS id,
      kepler_name     AS name,
      koi_disposition AS disposition,
      koi_period      AS period_days,
      koi_prad        AS radius_re,
      koi_model_snr   AS snr
    FROM cumulative
  `,
	MissionTESS: `
    SELECT
      tid             AS id,
      toi             AS name,
      tfopwg_disp     AS disposition,
      pl_orbper       AS period_days,
      pl_rade         AS radius_re
    FROM toi
  `,
}

var files = map[Mission]string{
	MissionKepler: "kepler_koi.csv",
	MissionTESS:   "tess_toi.csv",
}

// Query returns the ADQL that selects m's catalog with unified column aliases.
func Query(m Mission) string { return queries[m] }

// FileName is the published export name for m under the data directory.
func FileName(m Mission) string { return files[m] }

var whitespace = regexp.MustCompile(`\s+`)

// SyncURL builds a JSON sync query URL. Whitespace is collapsed and spaces
// become '+', the form the archive documents.
func SyncURL(adql string) string {
	q := whitespace.ReplaceAllString(strings.TrimSpace(adql), " ")
	q = strings.ReplaceAll(q, " ", "+")
	return fmt.Sprintf("%s?query=%s&format=json&maxrec=%d", SyncEndpoint, q, MaxRecords)
}

// Errors returned by Convert.
var (
	ErrUnexpectedShape = errors.New("unexpected TAP JSON shape")
	ErrZeroRows        = errors.New("zero rows")
)

// MissingColumnError reports an aliased column absent from the first row.
type MissingColumnError struct {
	Mission Mission
	Column  string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: expected column %q missing in TAP response", e.Mission, e.Column)
}

// RequiredColumns must be present in the first row of every response. snr is
// optional because the TESS table has none.
var RequiredColumns = []string{"id", "name", "disposition", "period_days", "radius_re"}

// Row is one catalog row with aliased columns decoded as text.
type Row struct {
	ID          string `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	Disposition string `mapstructure:"disposition"`
	PeriodDays  string `mapstructure:"period_days"`
	RadiusRE    string `mapstructure:"radius_re"`
	SNR         string `mapstructure:"snr"`
}

// Fields returns the row in unified column order, mission first.
func (r Row) Fields(m Mission) []string {
	return []string{string(m), r.ID, r.Name, r.Disposition, r.PeriodDays, r.RadiusRE, r.SNR}
}

// objects accepts either response shape: an array of objects, or
// {"metadata":[{"name":...}], "data":[[...]]}.
func objects(payload []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode TAP JSON: %w", err)
	}

	switch v := raw.(type) {
	case []any:
		out := make([]map[string]any, 0, len(v))
		for i, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("row %d: %w", i, ErrUnexpectedShape)
			}
			out = append(out, obj)
		}
		return out, nil

	case map[string]any:
		meta, okMeta := v["metadata"].([]any)
		data, okData := v["data"].([]any)
		if !okMeta || !okData {
			return nil, ErrUnexpectedShape
		}
		cols := make([]string, len(meta))
		for i, m := range meta {
			if col, ok := m.(map[string]any); ok {
				cols[i], _ = col["name"].(string)
			}
		}
		out := make([]map[string]any, 0, len(data))
		for i, item := range data {
			arr, ok := item.([]any)
			if !ok {
				return nil, fmt.Errorf("row %d: %w", i, ErrUnexpectedShape)
			}
			obj := make(map[string]any, len(arr))
			for j, val := range arr {
				if j < len(cols) {
					obj[cols[j]] = val
				}
			}
			out = append(out, obj)
		}
		return out, nil
	}
	return nil, ErrUnexpectedShape
}

// Convert decodes a TAP JSON payload for mission m and validates it.
func Convert(payload []byte, m Mission) ([]Row, error) {
	objs, err := objects(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m, err)
	}
	if len(objs) == 0 {
		return nil, fmt.Errorf("%s: %w", m, ErrZeroRows)
	}
	for _, col := range RequiredColumns {
		if _, ok := objs[0][col]; !ok {
			return nil, &MissingColumnError{Mission: m, Column: col}
		}
	}

	var rows []Row
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &rows,
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(objs); err != nil {
		return nil, fmt.Errorf("%s: decode rows: %w", m, err)
	}
	return rows, nil
}

// WriteCSV writes rows in the unified layout, header first. Lines are joined
// by LF with no newline after the last row, matching the archive export files.
func WriteCSV(w io.Writer, m Mission, rows []Row) error {
	table := make([][]string, 0, len(rows)+1)
	table = append(table, catalog.UnifiedHeader)
	for _, r := range rows {
		table = append(table, r.Fields(m))
	}
	_, err := io.WriteString(w, csvtext.Join(table))
	return err
}

// Dataset runs converted rows through the catalog pipeline.
func Dataset(rows []Row, m Mission, source string) *catalog.Dataset {
	table := make([][]string, 0, len(rows)+1)
	table = append(table, catalog.UnifiedHeader)
	for _, r := range rows {
		table = append(table, r.Fields(m))
	}
	return catalog.FromRows(table, source)
}
