//go:build js_eval

package restcache

import (
	"fmt"

	"github.com/dop251/goja"
)

// jsEvaluator runs record predicates in a fresh goja runtime per record.
type jsEvaluator struct {
	programSource
}

// NewJSEvaluator constructs an Evaluator backed by goja.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	e := &jsEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(&e.programSource)
		}
	}
	return e
}

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *jsEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError(EngineJS, fmt.Errorf("expression must not be empty"))
	}
	if cached, ok := e.cached(EngineJS, expression); ok {
		if program, ok := cached.(*goja.Program); ok {
			return &jsRule{evaluator: e, expression: expression, program: program}, nil
		}
	}
	program, err := goja.Compile("", fmt.Sprintf("(function(){ return (%s); })()", expression), false)
	if err != nil {
		return nil, wrapEvaluationError(EngineJS, expression, "", err)
	}
	e.remember(EngineJS, expression, program)
	return &jsRule{evaluator: e, expression: expression, program: program}, nil
}

type jsRule struct {
	evaluator  *jsEvaluator
	expression string
	program    *goja.Program
}

func (r *jsRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	vm := goja.New()
	if err := r.evaluator.bind(vm, ctx); err != nil {
		return nil, wrapEvaluationError(EngineJS, r.expression, ctx.label(), err)
	}
	value, err := vm.RunProgram(r.program)
	if err != nil {
		return nil, wrapEvaluationError(EngineJS, r.expression, ctx.label(), err)
	}
	return value.Export(), nil
}

func (e *jsEvaluator) bind(vm *goja.Runtime, ctx RuleContext) error {
	for key, value := range recordEnv(ctx) {
		if err := vm.Set(key, value); err != nil {
			return err
		}
	}
	if e.registry == nil {
		return nil
	}
	registry := e.registry
	if err := vm.Set("call", func(name string, arguments ...any) (any, error) {
		return registry.Call(name, arguments...)
	}); err != nil {
		return err
	}
	for _, name := range registry.Names() {
		if err := vm.Set(name, func(arguments ...any) (any, error) {
			return registry.Call(name, arguments...)
		}); err != nil {
			return err
		}
	}
	return nil
}

func jsEvaluatorAvailable() bool {
	return true
}

func isJSEvaluator(e Evaluator) bool {
	_, ok := e.(*jsEvaluator)
	return ok
}
