package computecache

import (
	"context"
	"log/slog"
)

// DefaultShards is the default number of shards of the result table.
var DefaultShards = 64

// Option is the interface for the options of the ComputeCache.
type Option[K KeyConstraint, V ValueConstraint] interface {
	apply(*options[K, V])
}

type optionFunc[K KeyConstraint, V ValueConstraint] func(*options[K, V])

func (f optionFunc[K, V]) apply(o *options[K, V]) {
	f(o)
}

// WithExecutor sets the executor that runs computations.
// The cache does not close an executor given this way.
// The default executor is an executor.WorkerPool with the number of workers given to the constructor.
func WithExecutor[K KeyConstraint, V ValueConstraint](executor Executor) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.executor = executor
	})
}

// WithClock sets the clock to the cache.
func WithClock[K KeyConstraint, V ValueConstraint](clock Clock) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.clock = clock
	})
}

// WithShards sets the number of shards of the result table.
// The number of shards must be a natural number.
func WithShards[K KeyConstraint, V ValueConstraint](shards int) Option[K, V] {
	if shards <= 0 {
		panic("shards must be natural number")
	}
	return optionFunc[K, V](func(o *options[K, V]) {
		o.shards = shards
	})
}

// WithValueCloner sets the value cloner applied to every value read from a handle.
// The default value cloner is NopValueCloner.
func WithValueCloner[K KeyConstraint, V ValueConstraint](cloner ValueCloner[V]) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.cloner = cloner
	})
}

// WithBackgroundContextProvider sets the provider of the parent context of computations.
// The provider must return a new context for each call.
// The default context provider is context.Background.
func WithBackgroundContextProvider[K KeyConstraint, V ValueConstraint](provider func() context.Context) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.context = provider
	})
}

// WithMetrics sets the metrics receiver.
func WithMetrics[K KeyConstraint, V ValueConstraint](metrics Metrics) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.metrics = metrics
	})
}

// WithLogger sets the logger. The default logger discards everything.
func WithLogger[K KeyConstraint, V ValueConstraint](logger *slog.Logger) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.logger = logger
	})
}

type options[K KeyConstraint, V ValueConstraint] struct {
	executor Executor
	clock    Clock
	shards   int
	cloner   ValueCloner[V]
	context  func() context.Context
	metrics  Metrics
	logger   *slog.Logger
}

func defaultOptions[K KeyConstraint, V ValueConstraint]() options[K, V] {
	return options[K, V]{
		clock:   SystemClock,
		shards:  DefaultShards,
		cloner:  NopValueCloner[V]{},
		context: context.Background,
		metrics: NopMetrics{},
		logger:  slog.New(slog.DiscardHandler),
	}
}
