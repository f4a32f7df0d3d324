package starlark

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/leapstack-labs/exocat/pkg/catalog"
	"github.com/leapstack-labs/exocat/pkg/query"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

const filterFile = "where"

var fileOptions = &syntax.FileOptions{}

// CompileError reports a where-expression that does not parse.
type CompileError struct {
	Expr    string
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("invalid where expression %q: %s", e.Expr, e.Message)
}

// Filter is a compiled where-expression. It is safe for concurrent use.
type Filter struct {
	expr   string
	fn     starlark.Value
	pool   *ThreadPool
	logger *slog.Logger
	errs   atomic.Int64
}

// Compile parses expr once. The expression sees the record fields listed in
// RecordParams plus the helpers from Predeclared; absent numbers are None.
func Compile(expr string, logger *slog.Logger) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, &CompileError{Expr: expr, Message: "empty expression"}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// Validate on its own first so the wrapper below cannot change its meaning.
	if _, err := fileOptions.ParseExpr(filterFile, expr, 0); err != nil {
		return nil, &CompileError{Expr: expr, Message: err.Error()}
	}

	src := "lambda " + strings.Join(RecordParams, ", ") + ": (" + expr + ")"
	pool := NewThreadPool(0)
	thread := pool.Get(filterFile)
	defer pool.Put(thread)

	predeclared := Predeclared()
	predeclared.Freeze()

	fn, err := starlark.EvalOptions(fileOptions, thread, filterFile, src, predeclared)
	if err != nil {
		return nil, &CompileError{Expr: expr, Message: err.Error()}
	}
	fn.Freeze()

	return &Filter{expr: expr, fn: fn, pool: pool, logger: logger}, nil
}

// String returns the source expression.
func (f *Filter) String() string { return f.expr }

// Eval runs the expression against r and reports its truth value.
func (f *Filter) Eval(r catalog.Record) (bool, error) {
	thread := f.pool.Get(filterFile)
	defer f.pool.Put(thread)

	v, err := starlark.Call(thread, f.fn, RecordArgs(r), nil)
	if err != nil {
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			return false, fmt.Errorf("record %s: %s", r.ID, evalErr.Msg)
		}
		return false, fmt.Errorf("record %s: %w", r.ID, err)
	}
	return bool(v.Truth()), nil
}

// Match reports whether r satisfies the expression. Evaluation errors exclude
// the record and are counted.
func (f *Filter) Match(r catalog.Record) bool {
	ok, err := f.Eval(r)
	if err != nil {
		f.errs.Add(1)
		f.logger.Debug("where expression failed", "expr", f.expr, "error", err)
		return false
	}
	return ok
}

// Predicate adapts the filter for query.ApplyWith.
func (f *Filter) Predicate() query.Predicate {
	return f.Match
}

// Errors returns how many evaluations have failed so far.
func (f *Filter) Errors() int64 {
	return f.errs.Load()
}
