package catalog

import (
	"fmt"
	"strings"
)

// Record is one normalized catalog entry, independent of the source layout.
type Record struct {
	Mission     string `json:"mission"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Host        string `json:"host"`
	Disposition string `json:"disposition"`
	Period      Number `json:"period"` // days
	Radius      Number `json:"radius"` // Earth radii
	SNR         Number `json:"snr"`
}

// Confirmed reports whether the record's disposition classifies as confirmed.
func (r Record) Confirmed() bool {
	return IsConfirmed(r.Disposition)
}

// Field identifies a Record attribute for sorting and display.
type Field string

// Record fields.
const (
	FieldMission     Field = "mission"
	FieldID          Field = "id"
	FieldName        Field = "name"
	FieldHost        Field = "host"
	FieldDisposition Field = "disposition"
	FieldPeriod      Field = "period"
	FieldRadius      Field = "radius"
	FieldSNR         Field = "snr"
)

// Fields lists every field in display order.
var Fields = []Field{
	FieldMission, FieldID, FieldName, FieldHost,
	FieldDisposition, FieldPeriod, FieldRadius, FieldSNR,
}

// ParseField resolves a field name case-insensitively.
func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Fields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown field %q (expected one of %s)", s, fieldList())
}

func fieldList() string {
	names := make([]string, len(Fields))
	for i, f := range Fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// Numeric reports whether the field holds a Number.
func (f Field) Numeric() bool {
	return f == FieldPeriod || f == FieldRadius || f == FieldSNR
}

// Text returns a string-valued field. Numeric fields are formatted.
func (r Record) Text(f Field) string {
	switch f {
	case FieldMission:
		return r.Mission
	case FieldID:
		return r.ID
	case FieldName:
		return r.Name
	case FieldHost:
		return r.Host
	case FieldDisposition:
		return r.Disposition
	case FieldPeriod, FieldRadius, FieldSNR:
		return r.Number(f).String()
	}
	return ""
}

// Number returns a numeric field; string fields yield an absent Number.
func (r Record) Number(f Field) Number {
	switch f {
	case FieldPeriod:
		return r.Period
	case FieldRadius:
		return r.Radius
	case FieldSNR:
		return r.SNR
	}
	return Number{}
}

// UnifiedHeader is the column layout of the unified export format.
var UnifiedHeader = []string{"mission", "id", "name", "disposition", "period_days", "radius_re", "snr"}

// UnifiedRow renders the record in UnifiedHeader order. Absent numbers are blank.
func (r Record) UnifiedRow() []string {
	return []string{
		r.Mission,
		r.ID,
		r.Name,
		r.Disposition,
		r.Period.String(),
		r.Radius.String(),
		r.SNR.String(),
	}
}
