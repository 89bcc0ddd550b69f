// Package metrics defines the instrumentation hooks recorded by the SDK.
package metrics

import "time"

// Recorder counts payment events and observes operation latency. Labels
// identify the chain and operation; implementations must tolerate nil
// label maps.
type Recorder interface {
	IncCounter(event string, labels map[string]string)
	ObserveLatency(operation string, elapsed time.Duration, labels map[string]string)
}
