package guardcall

import "log/slog"

// Options holds configuration options for the [Scheduler].
type Options struct {
	Logger  *slog.Logger
	Metrics MetricsHook
}

// Option is a function that configures [Options].
type Option func(*Options)

// WithLogger sets the logger used to report asynchronous action failures. If
// unset, failures are discarded (but still observable through a
// [MetricsHook]).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithMetricsHook sets the metrics hook for the [Scheduler].
func WithMetricsHook(hook MetricsHook) Option {
	return func(o *Options) {
		o.Metrics = hook
	}
}
