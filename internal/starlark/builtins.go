package starlark

import (
	"go.starlark.net/starlark"
)

// Predeclared returns the builtin helpers available to where-expressions:
//
//	between(x, lo, hi)  lo <= x <= hi, False when x is None
//	known(x)            x is not None
func Predeclared() starlark.StringDict {
	return starlark.StringDict{
		"between": starlark.NewBuiltin("between", between),
		"known":   starlark.NewBuiltin("known", known),
	}
}

func between(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x, lo, hi starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 3, &x, &lo, &hi); err != nil {
		return nil, err
	}
	if x == starlark.None {
		return starlark.False, nil
	}
	v, err := starlark.AsFloat(x)
	if err != nil {
		return nil, err
	}
	l, err := starlark.AsFloat(lo)
	if err != nil {
		return nil, err
	}
	h, err := starlark.AsFloat(hi)
	if err != nil {
		return nil, err
	}
	return starlark.Bool(v >= l && v <= h), nil
}

func known(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &x); err != nil {
		return nil, err
	}
	return starlark.Bool(x != starlark.None), nil
}
