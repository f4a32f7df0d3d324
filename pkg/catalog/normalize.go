package catalog

import "strings"

// HeaderIndex maps lower-cased column names to their first position.
// Build it once per load and reuse it for every data row.
type HeaderIndex struct {
	pos map[string]int
}

// NewHeaderIndex indexes a header row.
func NewHeaderIndex(header []string) HeaderIndex {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(h)
		if _, seen := pos[key]; !seen {
			pos[key] = i
		}
	}
	return HeaderIndex{pos: pos}
}

// Column returns the position of name, or -1.
func (h HeaderIndex) Column(name string) int {
	if i, ok := h.pos[strings.ToLower(name)]; ok {
		return i
	}
	return -1
}

// Lookup returns the cell for the first alias that names a column present in
// both the header and the row. A matching column with an empty cell still wins.
func (h HeaderIndex) Lookup(row []string, aliases ...string) (string, bool) {
	for _, a := range aliases {
		i := h.Column(a)
		if i >= 0 && i < len(row) {
			return row[i], true
		}
	}
	return "", false
}

// value is Lookup without the presence flag.
func (h HeaderIndex) value(row []string, aliases ...string) string {
	v, _ := h.Lookup(row, aliases...)
	return v
}

// Alias lists, most preferred first.
var (
	keplerID          = []string{"kepid", "kepler_id", "kepoi_name", "kepler_name", "koi_name"}
	keplerName        = []string{"kepler_name", "kepoi_name"}
	keplerDisposition = []string{"koi_disposition", "koi_pdisposition"}
	keplerSNR         = []string{"koi_model_snr", "koi_snr"}

	tessID          = []string{"TIC ID", "TIC", "tic_id", "tic"}
	tessName        = []string{"TOI", "toi", "TOI Name", "Full TOI ID"}
	tessHost        = []string{"Star Name", "host", "hostname"}
	tessPeriod      = []string{"Period", "period", "pl_orbper", "orbital_period"}
	tessRadius      = []string{"Planet Radius (R_Earth)", "pl_rade", "planet_radius", "radius"}
	tessSNR         = []string{"SNR", "snr", "ts_snr"}
	tessDisposition = []string{"Disposition", "TFOPwg Disposition", "tfopwg_disposition", "disposition"}

	fallbackID          = []string{"id", "name", "kepid", "tic"}
	fallbackName        = []string{"name", "kepler_name", "toi", "tic"}
	fallbackHost        = []string{"host", "hostname", "Star Name"}
	fallbackDisposition = []string{"disposition", "koi_disposition", "TFOPwg Disposition"}
	fallbackPeriod      = []string{"period_days", "koi_period", "period", "pl_orbper"}
	fallbackRadius      = []string{"radius_re", "koi_prad", "pl_rade", "Planet Radius (R_Earth)"}
	fallbackSNR         = []string{"snr", "koi_model_snr", "SNR"}
)

// Normalize maps one data row into a Record using the schema's aliases.
// It never fails: missing columns leave fields empty or absent.
func Normalize(schema Schema, idx HeaderIndex, row []string) Record {
	switch schema {
	case SchemaUnified:
		return normalizeUnified(idx, row)
	case SchemaKepler:
		return normalizeKepler(idx, row)
	case SchemaTESS:
		return normalizeTESS(idx, row)
	default:
		return normalizeFallback(idx, row)
	}
}

func normalizeUnified(idx HeaderIndex, row []string) Record {
	return Record{
		Mission:     idx.value(row, "mission"),
		ID:          idx.value(row, "id"),
		Name:        idx.value(row, "name"),
		Disposition: NormalizeDisposition(idx.value(row, "disposition")),
		Period:      ParseNumber(idx.value(row, "period_days")),
		Radius:      ParseNumber(idx.value(row, "radius_re")),
		SNR:         ParseNumber(idx.value(row, "snr")),
	}
}

func normalizeKepler(idx HeaderIndex, row []string) Record {
	id, _ := idx.Lookup(row, keplerID...)
	name, ok := idx.Lookup(row, keplerName...)
	if !ok {
		name = id
	}

	// Host is the designation minus the planet letter: "Kepler-10 b" -> "Kepler-10".
	host := idx.value(row, "kepler_name")
	if i := strings.IndexByte(host, ' '); i >= 0 {
		host = host[:i]
	}

	return Record{
		Mission:     "Kepler",
		ID:          id,
		Name:        name,
		Host:        host,
		Disposition: NormalizeDisposition(idx.value(row, keplerDisposition...)),
		Period:      ParseNumber(idx.value(row, "koi_period")),
		Radius:      ParseNumber(idx.value(row, "koi_prad")),
		SNR:         ParseNumber(idx.value(row, keplerSNR...)),
	}
}

func normalizeTESS(idx HeaderIndex, row []string) Record {
	// TOI designations identify TESS candidates; TIC ids only fill in when absent.
	label, ok := idx.Lookup(row, tessName...)
	if !ok {
		label = idx.value(row, tessID...)
	}

	return Record{
		Mission:     "TESS",
		ID:          label,
		Name:        label,
		Host:        idx.value(row, tessHost...),
		Disposition: NormalizeDisposition(idx.value(row, tessDisposition...)),
		Period:      ParseNumber(idx.value(row, tessPeriod...)),
		Radius:      ParseNumber(idx.value(row, tessRadius...)),
		SNR:         ParseNumber(idx.value(row, tessSNR...)),
	}
}

func normalizeFallback(idx HeaderIndex, row []string) Record {
	return Record{
		Mission:     idx.value(row, "mission"),
		ID:          idx.value(row, fallbackID...),
		Name:        idx.value(row, fallbackName...),
		Host:        idx.value(row, fallbackHost...),
		Disposition: NormalizeDisposition(idx.value(row, fallbackDisposition...)),
		Period:      ParseNumber(idx.value(row, fallbackPeriod...)),
		Radius:      ParseNumber(idx.value(row, fallbackRadius...)),
		SNR:         ParseNumber(idx.value(row, fallbackSNR...)),
	}
}
