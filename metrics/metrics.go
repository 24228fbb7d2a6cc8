// Package metrics defines the recorder surface the middleware reports to:
// one counter per classification and one latency histogram per backend
// operation.
package metrics

import "time"

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
