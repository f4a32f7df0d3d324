package catalog

import (
	"bytes"
	"encoding/json"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// Number is an optional finite float. The zero value is absent (null).
type Number struct {
	value float64
	valid bool
}

// Some returns a present Number. Non-finite values are stored as absent.
func Some(v float64) Number {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Number{}
	}
	return Number{value: v, valid: true}
}

// decimalNumber is the plain decimal form accepted for numeric cells: an
// optional sign, digits with an optional fraction, and an optional exponent.
// Go literal extras such as digit separators and hex floats are not numbers here.
var decimalNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// ParseNumber coerces raw cell text. Blank text, unparsable text and non-finite
// results are all absent. Unsigned 0x, 0o and 0b integers are accepted.
func ParseNumber(raw string) Number {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Number{}
	}
	if v, ok := parsePrefixedInt(s); ok {
		return Some(v)
	}
	if !decimalNumber.MatchString(s) {
		return Number{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Number{}
	}
	return Some(v)
}

func parsePrefixedInt(s string) (float64, bool) {
	if len(s) < 3 || s[0] != '0' {
		return 0, false
	}
	var base int
	switch s[1] {
	case 'x', 'X':
		base = 16
	case 'o', 'O':
		base = 8
	case 'b', 'B':
		base = 2
	default:
		return 0, false
	}
	digits := s[2:]
	for _, c := range digits {
		if digitValue(c) >= base {
			return 0, false
		}
	}
	n, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return 0, false
	}
	v, _ := new(big.Float).SetInt(n).Float64()
	return v, true
}

func digitValue(c rune) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return 99
}

// Valid reports whether the value is present.
func (n Number) Valid() bool { return n.valid }

// Get returns the value and whether it is present.
func (n Number) Get() (float64, bool) { return n.value, n.valid }

// String formats the value in plain decimal notation; absent values format as "".
func (n Number) String() string {
	if !n.valid {
		return ""
	}
	return strconv.FormatFloat(n.value, 'f', -1, 64)
}

// Ptr returns a pointer to a copy of the value, or nil when absent.
func (n Number) Ptr() *float64 {
	if !n.valid {
		return nil
	}
	v := n.value
	return &v
}

// FromPtr is the inverse of Ptr.
func FromPtr(p *float64) Number {
	if p == nil {
		return Number{}
	}
	return Some(*p)
}

// MarshalJSON encodes absent values as null.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.value)
}

// UnmarshalJSON accepts null or a JSON number.
func (n *Number) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*n = Number{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Some(v)
	return nil
}
