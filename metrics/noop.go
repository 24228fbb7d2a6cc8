package metrics

import "time"

// NoopRecorder drops every observation. It is the default recorder so the
// middleware works without a metrics backend wired in.
type NoopRecorder struct{}

func (NoopRecorder) IncCounter(name string, labels map[string]string) {}

func (NoopRecorder) ObserveLatency(name string, d time.Duration,
	labels map[string]string) {
}
