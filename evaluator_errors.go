package restcache

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-restcache/cache"
)

// EvaluationError reports a predicate that failed to compile or run. Index
// and RecordID locate the record being filtered; Index is -1 when the
// failure happened before any record was visited.
type EvaluationError struct {
	Engine   string
	Expr     string
	Type     string
	Index    int
	RecordID string
	Err      error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "restcache: %s predicate %q on %s", e.Engine, e.Expr, typeLabel(e.Type))
	if e.Index >= 0 {
		fmt.Fprintf(&b, "[%d]", e.Index)
	}
	if e.RecordID != "" {
		fmt.Fprintf(&b, " id=%s", e.RecordID)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func typeLabel(typ string) string {
	if typ == "" {
		return "<untyped>"
	}
	return typ
}

// wrapEvaluatorError prefixes engine setup failures that carry no
// expression context.
func wrapEvaluatorError(engine string, err error) error {
	if err == nil || strings.HasPrefix(err.Error(), "restcache:") {
		return err
	}
	return fmt.Errorf("restcache: %s evaluator: %w", engine, err)
}

// wrapEvaluationError returns err as an EvaluationError, filling any missing
// engine, expression or type on one that already is.
func wrapEvaluationError(engine, expr, typ string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		return &EvaluationError{Engine: engine, Expr: expr, Type: typ, Index: -1, Err: err}
	}
	if evalErr.Engine == "" {
		evalErr.Engine = engine
	}
	if evalErr.Expr == "" {
		evalErr.Expr = expr
	}
	if evalErr.Type == "" {
		evalErr.Type = typ
	}
	return evalErr
}

// recordEvaluationError pins err to the record at index.
func recordEvaluationError(err error, index int, record any) error {
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		return err
	}
	evalErr.Index = index
	if fields, ok := record.(map[string]any); ok {
		if id, ok := cache.RecordID(fields); ok {
			evalErr.RecordID = id
		}
	}
	return evalErr
}
