package bot

import "time"

// Metrics defines the interface for tracking pipeline activity.
type Metrics interface {
	// RecordUpdate records a handled update by kind (command name or "message").
	RecordUpdate(kind string)

	// RecordCompletion records a completion call outcome and its duration.
	RecordCompletion(outcome string, duration time.Duration)

	// RecordQuotaDenied records an update rejected by the daily cap.
	RecordQuotaDenied()

	// RecordBackoff records a backoff gate event ("blocked" or "tripped").
	RecordBackoff(event string)

	// RecordDelivery records one delivery attempt by kind ("text" or "voice").
	RecordDelivery(kind string, failed bool)
}

// NoopMetrics is a no-op implementation of the Metrics interface.
type NoopMetrics struct{}

func (n *NoopMetrics) RecordUpdate(kind string)                                {}
func (n *NoopMetrics) RecordCompletion(outcome string, duration time.Duration) {}
func (n *NoopMetrics) RecordQuotaDenied()                                      {}
func (n *NoopMetrics) RecordBackoff(event string)                              {}
func (n *NoopMetrics) RecordDelivery(kind string, failed bool)                 {}
