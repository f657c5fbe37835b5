package persistkit

import "github.com/persistkit/persistkit/codec"

// Option configures a Namespace.
//
// Options exist to avoid exploding the constructor surface; a Namespace is
// immutable after New returns.
type Option func(*Namespace)

// WithCodec configures the codec used for values and metadata.
//
// If nil is passed, codec.Default is used. All collections under one prefix
// must keep the codec they were created with; switching codecs over existing
// data is a format break.
func WithCodec(c codec.Codec) Option {
	return func(ns *Namespace) {
		if c == nil {
			c = codec.Default
		}
		ns.codec = c
	}
}

// WithLogger configures structured logging for collection operations.
// If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(ns *Namespace) {
		if l == nil {
			l = NoopLogger()
		}
		ns.logger = l
	}
}

// WithMetrics configures a collector for collection-level operation metrics.
// Storage-level op counts are the kvstore.Metered wrapper's job.
// If nil is passed, metrics are disabled.
func WithMetrics(m MetricsCollector) Option {
	return func(ns *Namespace) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		ns.metrics = m
	}
}
