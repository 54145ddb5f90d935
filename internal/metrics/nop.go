package metrics

import "time"

// NopMetrics discards everything. Useful for tests and one-shot CLI runs.
type NopMetrics struct{}

var _ Recorder = (*NopMetrics)(nil)

func NewNop() *NopMetrics {
	return &NopMetrics{}
}

func (n *NopMetrics) AllocationOutcome(_, _ string) {}

func (n *NopMetrics) BatchItem(_, _ string) {}

func (n *NopMetrics) ObserveRun(_ string, _ time.Duration) {}

func (n *NopMetrics) ReminderSent(_ string) {}
