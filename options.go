package restcache

import (
	"time"

	"github.com/goliatone/go-restcache/cache"
	"github.com/goliatone/go-restcache/parse"
	"github.com/goliatone/go-restcache/pkg/activity"
	"github.com/goliatone/go-restcache/pkg/logging"
	"github.com/goliatone/go-restcache/store"
	"github.com/goliatone/go-restcache/transport"
)

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	transport     transport.Transport
	parser        parse.Parser
	registry      *store.Registry
	logger        logging.Logger
	now           func() time.Time
	hostname      string
	evaluator     Evaluator
	programCache  ProgramCache
	functions     *FunctionRegistry
	evalLogger    EvaluatorLogger
	activityHooks activity.Hooks
	activityCfg   activity.Config
	storeOptions  []store.Option
}

func applyOptions(opts []Option) clientConfig {
	cfg := clientConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.logger = logging.OrNoop(cfg.logger)
	if cfg.now == nil {
		cfg.now = time.Now
	}
	if cfg.parser == nil {
		cfg.parser = parse.Nested{}
	}
	if cfg.evalLogger == nil {
		cfg.evalLogger = evaluatorLog{logger: cfg.logger}
	}
	if cfg.registry == nil {
		now := cfg.now
		storeOpts := []store.Option{
			store.WithLogger(cfg.logger),
			store.WithCacheOptions(cache.WithClock(func() int64 { return now().UnixMilli() })),
		}
		if len(cfg.activityHooks) > 0 {
			activityCfg := cfg.activityCfg
			activityCfg.Enabled = true
			storeOpts = append(storeOpts, store.WithActivity(activity.NewEmitter(cfg.activityHooks, activityCfg)))
		}
		cfg.registry = store.NewRegistry(append(storeOpts, cfg.storeOptions...)...)
	}
	return cfg
}

// WithTransport sets the network collaborator.
func WithTransport(t transport.Transport) Option {
	return func(cfg *clientConfig) {
		cfg.transport = t
	}
}

// WithParser sets the response parser. Defaults to parse.Nested.
func WithParser(p parse.Parser) Option {
	return func(cfg *clientConfig) {
		cfg.parser = p
	}
}

// WithRegistry uses registry instead of a private one. Store options given to
// the client are ignored in that case.
func WithRegistry(registry *store.Registry) Option {
	return func(cfg *clientConfig) {
		cfg.registry = registry
	}
}

// WithStoreOptions forwards options to the stores of the private registry.
func WithStoreOptions(opts ...store.Option) Option {
	return func(cfg *clientConfig) {
		cfg.storeOptions = append(cfg.storeOptions, opts...)
	}
}

// WithLogger sets the client logger.
func WithLogger(logger logging.Logger) Option {
	return func(cfg *clientConfig) {
		cfg.logger = logger
	}
}

// WithClock overrides the clock used for cache timestamps.
func WithClock(now func() time.Time) Option {
	return func(cfg *clientConfig) {
		cfg.now = now
	}
}

// WithBaseHostname prefixes every resolved path with hostname.
func WithBaseHostname(hostname string) Option {
	return func(cfg *clientConfig) {
		cfg.hostname = hostname
	}
}

// WithEvaluator sets the predicate evaluator used by Select.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *clientConfig) {
		cfg.evaluator = e
	}
}

// WithProgramCache registers a program cache for the default evaluator.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *clientConfig) {
		cfg.programCache = cache
	}
}

// WithFunctionRegistry exposes registry functions to the default evaluator.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *clientConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for the default evaluator.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *clientConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// WithEvaluatorLogger receives one event per Select call.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *clientConfig) {
		cfg.evalLogger = logger
	}
}

// WithActivityHooks emits store changes of the private registry to hooks.
// Hooks are cloned and nil entries dropped.
func WithActivityHooks(hooks activity.Hooks, cfg activity.Config) Option {
	normalized := cloneActivityHooks(hooks)
	return func(c *clientConfig) {
		c.activityHooks = normalized
		c.activityCfg = cfg
	}
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make(activity.Hooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook != nil {
			normalized = append(normalized, hook)
		}
	}
	if len(normalized) == 0 {
		return nil
	}
	return normalized
}
