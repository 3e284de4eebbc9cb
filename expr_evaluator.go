package restcache

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprEvaluatorOption configures an expr evaluator instance.
type ExprEvaluatorOption func(*exprEvaluator)

// ExprWithProgramCache wires a ProgramCache into the expr evaluator.
func ExprWithProgramCache(cache ProgramCache) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		e.cache = cache
	}
}

// ExprWithFunctionRegistry exposes registry functions to expressions, both by
// name and through call(name, args...).
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// exprEvaluator runs record predicates with github.com/expr-lang/expr.
type exprEvaluator struct {
	programSource
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr.
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	e := &exprEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Evaluate compiles expression (or reuses the cached program) and runs it
// against ctx.Record.
func (e *exprEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

// Compile returns a rule bound to one program; run it once per record.
func (e *exprEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError(EngineExpr, fmt.Errorf("expression must not be empty"))
	}
	program, err := e.program(expression)
	if err != nil {
		return nil, err
	}
	return &exprRule{program: program, expression: expression}, nil
}

func (e *exprEvaluator) program(expression string) (*exprvm.Program, error) {
	if cached, ok := e.cached(EngineExpr, expression); ok {
		if program, ok := cached.(*exprvm.Program); ok {
			return program, nil
		}
	}
	options := []exprlang.Option{exprlang.AllowUndefinedVariables()}
	if e.registry != nil {
		registry := e.registry
		options = append(options, exprlang.Function("call", func(params ...any) (any, error) {
			name, ok := firstString(params)
			if !ok {
				return nil, fmt.Errorf("%w: call needs a function name", ErrInvalidArgument)
			}
			return registry.Call(name, params[1:]...)
		}))
		for _, name := range registry.Names() {
			options = append(options, exprlang.Function(name, func(params ...any) (any, error) {
				return registry.Call(name, params...)
			}))
		}
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapEvaluationError(EngineExpr, expression, "", err)
	}
	e.remember(EngineExpr, expression, program)
	return program, nil
}

type exprRule struct {
	program    *exprvm.Program
	expression string
}

func (r *exprRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	result, err := exprlang.Run(r.program, recordEnv(ctx))
	if err != nil {
		return nil, wrapEvaluationError(EngineExpr, r.expression, ctx.label(), err)
	}
	return result, nil
}

// recordEnv flattens the record fields into the top level. The reserved names
// record, args, metadata and now take precedence over fields.
func recordEnv(ctx RuleContext) map[string]any {
	fields := ctx.fields()
	env := make(map[string]any, len(fields)+4)
	for key, value := range fields {
		env[key] = value
	}
	env["record"] = ctx.Record
	env["now"] = ctx.timestamp()
	env["args"] = ctx.Args
	env["metadata"] = ctx.Metadata
	return env
}

func firstString(params []any) (string, bool) {
	if len(params) == 0 {
		return "", false
	}
	name, ok := params[0].(string)
	return name, ok && name != ""
}
