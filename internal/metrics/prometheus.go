package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Recorder backed by Prometheus.
type PrometheusCollector struct {
	allocations  *prometheus.CounterVec
	batchItems   *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	remindersOut *prometheus.CounterVec
}

var _ Recorder = (*PrometheusCollector)(nil)

// NewPrometheus creates the collectors and registers them with reg, or with
// prometheus.DefaultRegisterer if reg is nil. namespace defaults to
// "fairshare".
func NewPrometheus(reg prometheus.Registerer, namespace string) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "fairshare"
	}

	p := &PrometheusCollector{
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "allocations_total",
			Help:      "Allocation attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		batchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "items_total",
			Help:      "Batch items processed by job and outcome.",
		}, []string{"job", "outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "run_duration_seconds",
			Help:      "Duration of one job run in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms .. ~10s
		}, []string{"job"}),
		remindersOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "push",
			Name:      "reminders_total",
			Help:      "Reminder delivery attempts by result.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{p.allocations, p.batchItems, p.runDuration, p.remindersOut} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *PrometheusCollector) AllocationOutcome(source, outcome string) {
	p.allocations.WithLabelValues(source, outcome).Inc()
}

func (p *PrometheusCollector) BatchItem(job, outcome string) {
	p.batchItems.WithLabelValues(job, outcome).Inc()
}

func (p *PrometheusCollector) ObserveRun(job string, d time.Duration) {
	p.runDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (p *PrometheusCollector) ReminderSent(result string) {
	p.remindersOut.WithLabelValues(result).Inc()
}
