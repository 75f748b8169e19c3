// Package metrics exposes Prometheus collectors for the production scheduler,
// the dispatcher and the testing engine.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	steps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "psharp",
			Subsystem: "scheduler",
			Name:      "steps_total",
			Help:      "Machine steps that made progress.",
		},
		[]string{"mode"},
	)
	dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "psharp",
			Subsystem: "scheduler",
			Name:      "dispatch_duration_seconds",
			Help:      "Time a worker spent on one dispatch of a unit.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"queue"},
	)
	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "psharp",
			Subsystem: "scheduler",
			Name:      "queue_depth",
			Help:      "Units waiting for a worker.",
		},
		[]string{"queue"},
	)
	machinesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "psharp",
			Subsystem: "runtime",
			Name:      "machines_created_total",
			Help:      "Machines created by the dispatcher.",
		},
		[]string{"type"},
	)
	eventsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "psharp",
			Subsystem: "runtime",
			Name:      "events_sent_total",
			Help:      "Events routed by the dispatcher.",
		},
		[]string{"type", "delivered"},
	)
	iterations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "psharp",
			Subsystem: "engine",
			Name:      "iterations_total",
			Help:      "Testing iterations by verdict.",
		},
		[]string{"program", "verdict"},
	)
)

// RegisterMetrics registers all collectors with the default registry. It is
// safe to call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(steps, dispatchDuration, queueDepth, machinesCreated, eventsSent, iterations)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

// RecordStep counts one progressing machine step.
func RecordStep(mode string) {
	RegisterMetrics()
	steps.WithLabelValues(mode).Inc()
}

// RecordDispatch observes one worker dispatch.
func RecordDispatch(queue string, duration time.Duration) {
	RegisterMetrics()
	dispatchDuration.WithLabelValues(queue).Observe(duration.Seconds())
}

// SetQueueDepth reports the current length of a work queue.
func SetQueueDepth(queue string, depth int) {
	RegisterMetrics()
	queueDepth.WithLabelValues(queue).Set(float64(depth))
}

// RecordCreate counts a created machine.
func RecordCreate(typeName string) {
	RegisterMetrics()
	machinesCreated.WithLabelValues(typeName).Inc()
}

// RecordSend counts a routed event. delivered is false when the target had
// already halted.
func RecordSend(targetType string, delivered bool) {
	RegisterMetrics()
	label := "true"
	if !delivered {
		label = "false"
	}
	eventsSent.WithLabelValues(targetType, label).Inc()
}

// RecordIteration counts one finished testing iteration.
func RecordIteration(program, verdict string) {
	RegisterMetrics()
	iterations.WithLabelValues(program, verdict).Inc()
}
