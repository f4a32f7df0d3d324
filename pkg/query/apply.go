package query

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/exocat/pkg/catalog"
)

// Predicate decides whether a record stays in the view.
type Predicate func(catalog.Record) bool

// Apply filters records by every predicate in st and sorts the survivors.
// The input slice is never modified.
func Apply(records []catalog.Record, st State) []catalog.Record {
	return ApplyWith(records, st)
}

// ApplyWith is Apply with additional predicates ANDed onto the state's own.
func ApplyWith(records []catalog.Record, st State, extra ...Predicate) []catalog.Record {
	preds := append(Predicates(st), extra...)

	out := make([]catalog.Record, 0, len(records))
	for _, r := range records {
		if matchAll(preds, r) {
			out = append(out, r)
		}
	}

	key := st.Sort.Key
	if key == "" {
		key = DefaultSort.Key
	}
	dir := st.Sort.dir()
	sort.SliceStable(out, func(i, j int) bool {
		return Compare(out[i], out[j], key, dir) < 0
	})
	return out
}

// Predicates returns the filters implied by st. Unset filters are omitted.
func Predicates(st State) []Predicate {
	var preds []Predicate
	if st.ConfirmedOnly {
		preds = append(preds, catalog.Record.Confirmed)
	}
	if q := strings.ToLower(strings.TrimSpace(st.Search)); q != "" {
		preds = append(preds, func(r catalog.Record) bool {
			return strings.Contains(haystack(r), q)
		})
	}
	if st.Radius.Bounded() {
		rng := st.Radius
		preds = append(preds, func(r catalog.Record) bool { return rng.Contains(r.Radius) })
	}
	if st.Period.Bounded() {
		rng := st.Period
		preds = append(preds, func(r catalog.Record) bool { return rng.Contains(r.Period) })
	}
	return preds
}

func matchAll(preds []Predicate, r catalog.Record) bool {
	for _, p := range preds {
		if !p(r) {
			return false
		}
	}
	return true
}

func haystack(r catalog.Record) string {
	return strings.ToLower(strings.Join([]string{r.Name, r.ID, r.Host, r.Mission, r.Disposition}, " "))
}

// Compare orders a before b on key. Absent numbers sort after present ones in
// both directions; dir only flips the order among present values.
func Compare(a, b catalog.Record, key catalog.Field, dir Direction) int {
	if key.Numeric() {
		av, aok := a.Number(key).Get()
		bv, bok := b.Number(key).Get()
		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return 1
		case !bok:
			return -1
		case av < bv:
			return -int(dir)
		case av > bv:
			return int(dir)
		}
		return 0
	}
	return strings.Compare(a.Text(key), b.Text(key)) * int(dir)
}

// Page slices an already ordered result. A non-positive limit means no limit.
func Page(records []catalog.Record, offset, limit int) []catalog.Record {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(records) {
		return []catalog.Record{}
	}
	end := len(records)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return records[offset:end]
}
