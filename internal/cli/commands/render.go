package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/exocat/internal/cli/output"
	"github.com/leapstack-labs/exocat/pkg/catalog"
)

// recordHeader is the column layout for record tables.
var recordHeader = []string{"mission", "id", "name", "host", "disposition", "confirmed", "period", "radius", "snr"}

func recordRow(r catalog.Record) []string {
	return []string{
		r.Mission,
		r.ID,
		r.Name,
		r.Host,
		r.Disposition,
		strconv.FormatBool(r.Confirmed()),
		r.Period.String(),
		r.Radius.String(),
		r.SNR.String(),
	}
}

// recordsResult is the JSON shape of a query result.
type recordsResult struct {
	State       string           `json:"state"`
	Where       string           `json:"where,omitempty"`
	WhereErrors int64            `json:"where_errors,omitempty"`
	Total       int              `json:"total"`
	Records     []catalog.Record `json:"records"`
}

func renderRecords(r *output.Renderer, res recordsResult) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(res)
	}

	rows := make([][]string, len(res.Records))
	for i, rec := range res.Records {
		rows[i] = recordRow(rec)
	}
	if len(rows) == 0 && r.EffectiveMode() != output.ModeCSV {
		r.Println(r.Muted("(no matching records)"))
		return nil
	}
	if err := r.Table(recordHeader, rows); err != nil {
		return err
	}
	if len(res.Records) < res.Total {
		r.Println(r.Muted(fmt.Sprintf("(%d of %d records)", len(res.Records), res.Total)))
	}
	return nil
}

func missionCounts(s catalog.Summary) string {
	parts := make([]string, 0, len(s.Missions))
	for _, m := range s.MissionNames() {
		label := m
		if label == "" {
			label = "(none)"
		}
		parts = append(parts, fmt.Sprintf("%s=%d", label, s.Missions[m]))
	}
	return strings.Join(parts, ", ")
}

func renderSummary(r *output.Renderer, s catalog.Summary) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(s)
	case output.ModeCSV:
		return r.Table(
			[]string{"id", "source", "schema", "columns", "rows", "confirmed", "loaded_at"},
			[][]string{{
				s.ID, s.Source, string(s.Schema), strconv.Itoa(s.Columns), strconv.Itoa(s.Rows),
				strconv.Itoa(s.Confirmed), s.LoadedAt.UTC().Format(time.RFC3339),
			}},
		)
	}

	r.Header(2, s.Source)
	r.KeyValues([][2]string{
		{"id", s.ID},
		{"schema", string(s.Schema)},
		{"columns", strconv.Itoa(s.Columns)},
		{"rows", strconv.Itoa(s.Rows)},
		{"confirmed", strconv.Itoa(s.Confirmed)},
		{"missions", missionCounts(s)},
		{"loaded", s.LoadedAt.Local().Format(time.DateTime)},
	})
	return nil
}
