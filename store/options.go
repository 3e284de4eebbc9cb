package store

import (
	"github.com/goliatone/go-restcache/cache"
	"github.com/goliatone/go-restcache/pkg/activity"
	"github.com/goliatone/go-restcache/pkg/logging"
)

// Option configures stores and registries.
type Option func(*config)

type config struct {
	logger       logging.Logger
	emitter      *activity.Emitter
	cacheOptions []cache.Option
	scheduler    func(func())
}

func newConfig(opts []Option) config {
	cfg := config{
		logger:    logging.Noop(),
		scheduler: func(fn func()) { go fn() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.logger = logging.OrNoop(cfg.logger)
	return cfg
}

// WithLogger sets the store logger.
func WithLogger(logger logging.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithActivity emits resource change events through emitter.
func WithActivity(emitter *activity.Emitter) Option {
	return func(cfg *config) {
		cfg.emitter = emitter
	}
}

// WithCacheOptions forwards options to every FragmentCache the store creates.
func WithCacheOptions(opts ...cache.Option) Option {
	return func(cfg *config) {
		cfg.cacheOptions = append(cfg.cacheOptions, opts...)
	}
}

// WithScheduler overrides how deferred notification delivery is started. The
// default runs delivery on a new goroutine.
func WithScheduler(schedule func(func())) Option {
	return func(cfg *config) {
		if schedule != nil {
			cfg.scheduler = schedule
		}
	}
}

// WithManualDelivery disables background delivery. Pending notifications are
// delivered only by Flush.
func WithManualDelivery() Option {
	return WithScheduler(func(func()) {})
}
