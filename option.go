package l402

import (
	"time"

	"github.com/vitwit/l402/logger"
	"github.com/vitwit/l402/metrics"
)

type Option func(*Middleware)

// WithLogger replaces the default noop logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Middleware) {
		m.log = l
	}
}

// WithMetrics replaces the default noop recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(m *Middleware) {
		m.rec = r
	}
}

// WithTimeout overrides the per-call invoice creation timeout.
func WithTimeout(t time.Duration) Option {
	return func(m *Middleware) {
		m.timeout = t
	}
}

// WithLocation sets the location stamped on minted tokens.
func WithLocation(location string) Option {
	return func(m *Middleware) {
		m.location = location
	}
}

// WithMemo sets the memo attached to minted invoices.
func WithMemo(memo string) Option {
	return func(m *Middleware) {
		m.memo = memo
	}
}

// WithCaveatFunc installs the per-request caveat function bound into freshly
// minted tokens.
func WithCaveatFunc(fn CaveatFunc) Option {
	return func(m *Middleware) {
		m.caveatFn = fn
	}
}
