package server

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/leapstack-labs/exocat/pkg/catalog"
	"github.com/leapstack-labs/exocat/pkg/query"
)

// RecordsQuery is the parsed form of GET /api/records parameters.
type RecordsQuery struct {
	State  query.State
	Where  string
	Offset int
	Limit  int
}

// ParseRecordsQuery validates request parameters. fallback is used when the
// request names no sort key.
func ParseRecordsQuery(v url.Values, fallback query.Sort) (RecordsQuery, error) {
	q := RecordsQuery{
		State: query.Default().WithSearch(v.Get("q")),
		Where: strings.TrimSpace(v.Get("where")),
		Limit: DefaultLimit,
	}

	if raw := v.Get("confirmed"); raw != "" {
		on, err := strconv.ParseBool(raw)
		if err != nil {
			return q, fmt.Errorf("confirmed: invalid boolean %q", raw)
		}
		q.State = q.State.WithConfirmedOnly(on)
	}

	radius, err := query.ParseRange(v.Get("radius_min"), v.Get("radius_max"))
	if err != nil {
		return q, fmt.Errorf("radius %w", err)
	}
	period, err := query.ParseRange(v.Get("period_min"), v.Get("period_max"))
	if err != nil {
		return q, fmt.Errorf("period %w", err)
	}
	q.State = q.State.WithRadius(radius).WithPeriod(period)

	sortBy := fallback
	if key := v.Get("sort"); key != "" {
		field, err := catalog.ParseField(key)
		if err != nil {
			return q, err
		}
		dir, err := query.ParseDirection(v.Get("dir"))
		if err != nil {
			return q, err
		}
		sortBy = query.Sort{Key: field, Dir: dir}
	}
	q.State = q.State.WithSort(sortBy)

	if q.Offset, err = intParam(v, "offset", 0); err != nil {
		return q, err
	}
	if q.Limit, err = intParam(v, "limit", DefaultLimit); err != nil {
		return q, err
	}
	if q.Limit == 0 || q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q, nil
}

func intParam(v url.Values, name string, def int) (int, error) {
	raw := v.Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s: expected a non-negative integer, got %q", name, raw)
	}
	return n, nil
}
