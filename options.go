package sketchindex

import "log/slog"

// SigLimit is the safety cap on the signature generator's total expected
// enumeration count across e in [0, k]. A query whose expected
// enumeration count exceeds this aborts with ErrSearchAbort instead of
// running an enumeration that would dwarf a linear scan. Exported so
// every index/* sub-package can enforce the same cap before starting
// to enumerate.
const SigLimit = 100_000_000

// MetricsCollector receives per-operation timing and outcome callbacks.
// Implement this to integrate with a monitoring system.
type MetricsCollector interface {
	// RecordBuild is called after each index build.
	RecordBuild(kind string, numEntries int, err error)
	// RecordSearch receives per-search callbacks; the index searchers in
	// this module do not call it.
	RecordSearch(k int, numResults int, err error)
}

// NoopMetricsCollector discards all metrics.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(string, int, error) {}
func (NoopMetricsCollector) RecordSearch(int, int, error)   {}

// options holds cross-cutting, non-persisted constructor settings shared
// by every index kind.
type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	compress         bool // persistence: wrap the serialised blob in zstd
}

// Option configures index construction and (de)serialisation behavior.
// Options never affect the persisted bytes' semantic content, only
// ambient behavior around them (logging, metrics, optional compression).
type Option func(*options)

// WithLogger configures structured logging for build/search/persistence
// operations. Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel is a convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector; index builds report
// to it through RecordBuild. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithCompression records a zstd-compression choice, returned as the third
// value of ApplyOptions. Disabled by default. The index packages ignore
// that value; persistence.Save takes compression as its own argument.
func WithCompression(enabled bool) Option {
	return func(o *options) {
		o.compress = enabled
	}
}

// ApplyOptions folds a slice of Options onto the package defaults. It is
// exported for use by the index/* subpackages, which each accept their
// own []Option but share this default-application logic.
func ApplyOptions(optFns []Option) (logger *Logger, mc MetricsCollector, compress bool) {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o.logger, o.metricsCollector, o.compress
}
