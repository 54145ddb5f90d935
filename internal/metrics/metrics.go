// Package metrics records engine and job outcomes.
package metrics

import "time"

// Recorder receives engine and job measurements. Implementations must be
// safe for concurrent use.
type Recorder interface {
	// AllocationOutcome counts one allocation attempt by source
	// (allocate, allocate_all, completion) and outcome.
	AllocationOutcome(source, outcome string)
	// BatchItem counts one processed item of a batch job by outcome.
	BatchItem(job, outcome string)
	// ObserveRun records how long one run of a job took.
	ObserveRun(job string, d time.Duration)
	// ReminderSent counts one reminder delivery attempt by result.
	ReminderSent(result string)
}
