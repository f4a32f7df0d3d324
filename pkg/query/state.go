// Package query filters and orders normalized catalog records.
//
// A State is a plain value. Every operation that "changes" it returns a new
// State, and Apply never mutates the records it is given, so callers can
// recompute views from any snapshot without coordination.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/exocat/pkg/catalog"
)

// Direction is the sort order multiplier.
type Direction int

// Sort directions.
const (
	Asc  Direction = 1
	Desc Direction = -1
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// ParseDirection accepts "asc" or "desc". Blank means ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	}
	return Asc, fmt.Errorf("invalid sort direction %q (expected asc or desc)", s)
}

// Range is an inclusive numeric interval. An absent bound is unbounded.
type Range struct {
	Min catalog.Number `json:"min"`
	Max catalog.Number `json:"max"`
}

// Bounded reports whether either bound is set.
func (r Range) Bounded() bool {
	return r.Min.Valid() || r.Max.Valid()
}

// Contains reports whether n falls inside the range. An absent value passes
// only an unbounded range.
func (r Range) Contains(n catalog.Number) bool {
	v, ok := n.Get()
	if !ok {
		return !r.Bounded()
	}
	if lo, set := r.Min.Get(); set && v < lo {
		return false
	}
	if hi, set := r.Max.Get(); set && v > hi {
		return false
	}
	return true
}

func (r Range) String() string {
	if !r.Bounded() {
		return "any"
	}
	lo, hi := r.Min.String(), r.Max.String()
	if lo == "" {
		lo = "-inf"
	}
	if hi == "" {
		hi = "+inf"
	}
	return "[" + lo + ", " + hi + "]"
}

// ParseBound reads one bound typed by a user. Blank text means unbounded;
// anything else must be a finite number.
func ParseBound(text string) (catalog.Number, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return catalog.Number{}, nil
	}
	n := catalog.ParseNumber(s)
	if !n.Valid() {
		return catalog.Number{}, fmt.Errorf("invalid numeric bound %q", text)
	}
	return n, nil
}

// ParseRange builds a Range from user-typed bounds.
func ParseRange(minText, maxText string) (Range, error) {
	lo, err := ParseBound(minText)
	if err != nil {
		return Range{}, fmt.Errorf("min: %w", err)
	}
	hi, err := ParseBound(maxText)
	if err != nil {
		return Range{}, fmt.Errorf("max: %w", err)
	}
	return Range{Min: lo, Max: hi}, nil
}

// Sort names the active key and direction.
type Sort struct {
	Key catalog.Field `json:"key"`
	Dir Direction     `json:"dir"`
}

// DefaultSort orders by name ascending.
var DefaultSort = Sort{Key: catalog.FieldName, Dir: Asc}

// Toggle flips the direction when key is already active, otherwise it makes
// key active in ascending order.
func (s Sort) Toggle(key catalog.Field) Sort {
	if s.Key == key {
		return Sort{Key: key, Dir: -s.dir()}
	}
	return Sort{Key: key, Dir: Asc}
}

func (s Sort) dir() Direction {
	if s.Dir == Desc {
		return Desc
	}
	return Asc
}

func (s Sort) String() string {
	return string(s.Key) + " " + s.dir().String()
}

// State is the complete description of a view over a dataset.
type State struct {
	Search        string `json:"search"`
	ConfirmedOnly bool   `json:"confirmed_only"`
	Radius        Range  `json:"radius"`
	Period        Range  `json:"period"`
	Sort          Sort   `json:"sort"`
}

// Default is the state with no filters and the default sort.
func Default() State {
	return State{Sort: DefaultSort}
}

// WithSearch returns a copy with the search text replaced.
func (s State) WithSearch(q string) State {
	s.Search = q
	return s
}

// WithConfirmedOnly returns a copy with the confirmed-only flag set to on.
func (s State) WithConfirmedOnly(on bool) State {
	s.ConfirmedOnly = on
	return s
}

// WithRadius returns a copy with the radius range replaced.
func (s State) WithRadius(r Range) State {
	s.Radius = r
	return s
}

// WithPeriod returns a copy with the period range replaced.
func (s State) WithPeriod(r Range) State {
	s.Period = r
	return s
}

// WithSort returns a copy with the sort replaced.
func (s State) WithSort(o Sort) State {
	s.Sort = o
	return s
}

// ToggleSort returns a copy with Sort.Toggle applied.
func (s State) ToggleSort(key catalog.Field) State {
	s.Sort = s.Sort.Toggle(key)
	return s
}

// Describe renders the state as a single line for logs and the shell.
func (s State) Describe() string {
	var b strings.Builder
	b.WriteString("search=")
	b.WriteString(strconv.Quote(s.Search))
	b.WriteString(" confirmed=")
	b.WriteString(strconv.FormatBool(s.ConfirmedOnly))
	b.WriteString(" radius=")
	b.WriteString(s.Radius.String())
	b.WriteString(" period=")
	b.WriteString(s.Period.String())
	b.WriteString(" sort=")
	b.WriteString(s.Sort.String())
	return b.String()
}
