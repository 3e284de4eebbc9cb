package restcache

import "time"

// RuleContext carries the inputs of one predicate evaluation. Record fields
// are exposed as top-level variables next to record, args, metadata and now.
// Type labels errors and log events.
type RuleContext struct {
	Record   any
	Type     string
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	return *ctx.withDefaults().Now
}

func (ctx RuleContext) label() string {
	if ctx.Type != "" {
		return ctx.Type
	}
	return "unknown"
}

func (ctx RuleContext) fields() map[string]any {
	record, _ := ctx.Record.(map[string]any)
	return record
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// ProgramCache stores compiled expression programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// programSource is what the expr and js engines share: a program cache keyed
// per engine and the custom functions exposed to expressions.
type programSource struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

func (p programSource) cached(engine, expression string) (any, bool) {
	if p.cache == nil {
		return nil, false
	}
	return p.cache.Get(engine + ":" + expression)
}

func (p programSource) remember(engine, expression string, program any) {
	if p.cache != nil {
		p.cache.Set(engine+":"+expression, program)
	}
}

// JSEvaluatorOption configures the JS evaluator.
type JSEvaluatorOption func(*programSource)

// JSWithProgramCache applies a ProgramCache to the JS evaluator.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(p *programSource) {
		p.cache = cache
	}
}

// JSWithFunctionRegistry exposes registry functions to JS expressions.
func JSWithFunctionRegistry(registry *FunctionRegistry) JSEvaluatorOption {
	return func(p *programSource) {
		if registry != nil {
			p.registry = registry.Clone()
		}
	}
}
