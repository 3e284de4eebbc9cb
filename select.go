package restcache

import (
	"fmt"
	"time"

	"github.com/goliatone/go-restcache/cache"
)

// Engines accepted by NewEvaluator.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// NewEvaluator builds the named engine sharing cache and registry. The js
// engine requires the js_eval build tag.
func NewEvaluator(engine string, programs ProgramCache, registry *FunctionRegistry) (Evaluator, error) {
	switch engine {
	case "", EngineExpr:
		return NewExprEvaluator(ExprWithProgramCache(programs), ExprWithFunctionRegistry(registry)), nil
	case EngineCEL:
		return NewCELEvaluator(CELWithProgramCache(programs), CELWithFunctionRegistry(registry)), nil
	case EngineJS:
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("%w: js evaluator requires the js_eval build tag", ErrInvalidArgument)
		}
		return NewJSEvaluator(JSWithProgramCache(programs), JSWithFunctionRegistry(registry)), nil
	default:
		return nil, fmt.Errorf("%w: unknown evaluator engine %q", ErrInvalidArgument, engine)
	}
}

func (c *Client) evaluator() Evaluator {
	c.evalOnce.Do(func() {
		if c.cfg.evaluator != nil {
			c.eval = c.cfg.evaluator
			return
		}
		programs := c.cfg.programCache
		if programs == nil {
			programs = NewProgramCache()
		}
		c.eval = NewExprEvaluator(ExprWithProgramCache(programs), ExprWithFunctionRegistry(c.cfg.functions))
	})
	return c.eval
}

// Select filters the cached collection of d with a predicate expression. Each
// record is exposed to the expression through its fields, record, args,
// metadata and now. Records for which the expression is not true are
// dropped. The cache is read as is; Select never touches the network.
func (c *Client) Select(d *Descriptor, expression string, args map[string]any) ([]any, error) {
	res, err := c.Read(d)
	if err != nil {
		return nil, err
	}
	items, ok := res.Data.([]any)
	if !ok {
		if res.Data == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: select needs a collection, got %T", cache.ErrTypeMismatch, res.Data)
	}

	evaluator := c.evaluator()
	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	out, err := c.filter(evaluator, engine, d.Type, expression, items, args)
	c.cfg.evalLogger.LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expression,
		Type:     d.Type,
		Records:  len(items),
		Matched:  len(out),
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) filter(evaluator Evaluator, engine, typ, expression string, items []any, args map[string]any) ([]any, error) {
	if expression == "" {
		return nil, fmt.Errorf("%w: expression must not be empty", ErrInvalidArgument)
	}
	rule, err := evaluator.Compile(expression)
	if err != nil {
		return nil, wrapEvaluationError(engine, expression, typ, err)
	}
	now := c.cfg.now()
	out := make([]any, 0, len(items))
	for i, item := range items {
		value, err := rule.Evaluate(RuleContext{Record: item, Type: typ, Now: &now, Args: args})
		if err != nil {
			return nil, recordEvaluationError(wrapEvaluationError(engine, expression, typ, err), i, item)
		}
		if matched, _ := value.(bool); matched {
			out = append(out, item)
		}
	}
	return out, nil
}

func evaluatorEngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return EngineExpr
	case *celEvaluator:
		return EngineCEL
	}
	if isJSEvaluator(e) {
		return EngineJS
	}
	return "custom"
}
