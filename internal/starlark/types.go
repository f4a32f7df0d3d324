// Package starlark evaluates user-supplied where-expressions against catalog
// records.
package starlark

import (
	"github.com/leapstack-labs/exocat/pkg/catalog"
	"go.starlark.net/starlark"
)

// RecordParams are the names a where-expression can reference, in the order
// they are passed to the compiled expression.
var RecordParams = []string{
	"mission", "id", "name", "host", "disposition", "confirmed", "period", "radius", "snr",
}

// NumberToStarlark converts an optional number. Absent values become None.
func NumberToStarlark(n catalog.Number) starlark.Value {
	v, ok := n.Get()
	if !ok {
		return starlark.None
	}
	return starlark.Float(v)
}

// RecordArgs converts r into positional arguments matching RecordParams.
func RecordArgs(r catalog.Record) starlark.Tuple {
	return starlark.Tuple{
		starlark.String(r.Mission),
		starlark.String(r.ID),
		starlark.String(r.Name),
		starlark.String(r.Host),
		starlark.String(r.Disposition),
		starlark.Bool(r.Confirmed()),
		NumberToStarlark(r.Period),
		NumberToStarlark(r.Radius),
		NumberToStarlark(r.SNR),
	}
}
