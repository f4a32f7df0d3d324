package catalog

import "strings"

// Schema identifies which known column layout a file uses.
type Schema string

// Known layouts. SchemaUnknown is a valid outcome, not an error.
const (
	SchemaUnified Schema = "unified"
	SchemaKepler  Schema = "kepler"
	SchemaTESS    Schema = "tess"
	SchemaUnknown Schema = "unknown"
)

func (s Schema) String() string { return string(s) }

// Column names that drive detection, compared lower-cased.
var (
	unifiedRequired = []string{"mission", "period_days", "radius_re"}
	keplerMarkers   = []string{"koi_disposition", "koi_prad", "koi_period"}
	tessMarkers     = []string{"disposition", "tfopwg disposition", "tfopwg_disposition", "toi"}
)

// Classify inspects a header row. Checks run unified, kepler, tess in that
// order; the first that matches wins.
func Classify(header []string) Schema {
	set := make(map[string]struct{}, len(header))
	for _, h := range header {
		set[strings.ToLower(h)] = struct{}{}
	}

	switch {
	case hasAll(set, unifiedRequired):
		return SchemaUnified
	case hasAny(set, keplerMarkers):
		return SchemaKepler
	case hasAny(set, tessMarkers):
		return SchemaTESS
	default:
		return SchemaUnknown
	}
}

func hasAll(set map[string]struct{}, names []string) bool {
	for _, n := range names {
		if _, ok := set[n]; !ok {
			return false
		}
	}
	return true
}

func hasAny(set map[string]struct{}, names []string) bool {
	for _, n := range names {
		if _, ok := set[n]; ok {
			return true
		}
	}
	return false
}
