package restcache

import (
	"fmt"
	"sort"
	"strings"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL evaluator.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	fields := ctx.fields()
	program, err := e.loadOrCompile(expression, fields)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.label(), err)
	}
	out, _, err := program.program.Eval(e.activation(ctx, fields))
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.label(), err)
	}
	return out.Value(), nil
}

// Compile defers compilation to the first evaluation because the CEL
// environment declares one variable per record field.
func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	return &celCompiledRule{
		evaluator:  e,
		expression: expression,
	}, nil
}

func (e *celEvaluator) loadOrCompile(expression string, fields map[string]any) (*celProgram, error) {
	key := celCacheKey(expression, fields)
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv(fields)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, err
	}

	bundle := &celProgram{
		env:     env,
		program: prg,
	}
	if e.cache != nil {
		e.cache.Set(key, bundle)
	}
	return bundle, nil
}

func (e *celEvaluator) buildEnv(fields map[string]any) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("record", celgo.DynType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
	}
	if e.registry != nil {
		binding := celgo.FunctionBinding(e.callBinding())
		opts = append(opts, celgo.Function("call",
			celgo.Overload("call_string", []*celgo.Type{celgo.StringType}, celgo.DynType, binding),
			celgo.Overload("call_string_dyn", []*celgo.Type{celgo.StringType, celgo.DynType}, celgo.DynType, binding),
			celgo.Overload("call_string_dyn_dyn", []*celgo.Type{celgo.StringType, celgo.DynType, celgo.DynType}, celgo.DynType, binding),
		))
	}
	for _, key := range fieldNames(fields) {
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) activation(ctx RuleContext, fields map[string]any) map[string]any {
	activation := map[string]any{}
	for key, value := range fields {
		activation[key] = value
	}
	activation["now"] = ctx.timestamp()
	activation["record"] = ctx.Record
	activation["args"] = ctx.Args
	activation["metadata"] = ctx.Metadata
	return activation
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("compiled rule missing evaluator"))
	}
	return r.evaluator.Evaluate(ctx, r.expression)
}

// fieldNames lists record fields usable as CEL identifiers, skipping names
// reserved by the environment.
func fieldNames(fields map[string]any) []string {
	names := make([]string, 0, len(fields))
	for key := range fields {
		if celReserved[key] || !celIdentifier(key) {
			continue
		}
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}

var celReserved = map[string]bool{
	"now": true, "record": true, "type": true, "args": true, "metadata": true, "call": true,
	"true": true, "false": true, "null": true, "in": true,
}

func celIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func celCacheKey(expression string, fields map[string]any) string {
	return EngineCEL + ":" + expression + "\x00" + strings.Join(fieldNames(fields), ",")
}

func (e *celEvaluator) callBinding() func(...ref.Val) ref.Val {
	return func(values ...ref.Val) ref.Val {
		if e.registry == nil {
			return types.NewErr("restcache: function registry not configured")
		}
		if len(values) == 0 {
			return types.NewErr("restcache: call requires function name")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("restcache: call name must be string")
		}
		args := make([]any, 0, len(values)-1)
		for _, val := range values[1:] {
			args = append(args, val.Value())
		}
		result, err := e.registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
