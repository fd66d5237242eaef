// Package metrics records workflow and step telemetry as Prometheus
// collectors. A Collector is an engine Observer, so it sees exactly the
// lifecycle events a run produces
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kode4food/stepflow/pkg/api"
)

// Collector provides workflow metrics collection
type Collector struct {
	registry *prometheus.Registry

	// Workflow metrics
	workflowsTotal    *prometheus.CounterVec
	workflowsRejected *prometheus.CounterVec
	workflowDuration  *prometheus.HistogramVec
	workflowsInFlight prometheus.Gauge

	// Step metrics
	stepAttempts *prometheus.CounterVec
	stepRetries  *prometheus.CounterVec
	stepOutcomes *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
}

const (
	resultSuccess = "success"
	resultFailure = "failure"

	reasonCycle   = "cycle"
	reasonInvalid = "invalid"
)

// NewCollector creates a collector with its own registry
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "stepflow"
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
	}

	c.workflowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "runs_total",
			Help:      "Total number of finished workflow runs",
		},
		[]string{"result"},
	)

	c.workflowsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "rejected_total",
			Help:      "Total number of workflows rejected before execution",
		},
		[]string{"reason"},
	)

	c.workflowDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "duration_seconds",
			Help:      "Time taken to run a workflow to completion",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		},
		[]string{"result"},
	)

	c.workflowsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "in_flight",
			Help:      "Number of workflow runs currently executing",
		},
	)

	c.stepAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "step",
			Name:      "attempts_total",
			Help:      "Total number of step attempts started",
		},
		[]string{"step"},
	)

	c.stepRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "step",
			Name:      "retries_total",
			Help:      "Total number of failed attempts followed by a retry",
		},
		[]string{"step", "reason"},
	)

	c.stepOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "step",
			Name:      "outcomes_total",
			Help:      "Total number of steps reaching a terminal status",
		},
		[]string{"step", "status"},
	)

	c.stepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "step",
			Name:      "duration_seconds",
			Help:      "Time from first attempt to terminal status",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		},
		[]string{"step", "status"},
	)

	c.registry.MustRegister(
		c.workflowsTotal,
		c.workflowsRejected,
		c.workflowDuration,
		c.workflowsInFlight,
		c.stepAttempts,
		c.stepRetries,
		c.stepOutcomes,
		c.stepDuration,
	)

	return c
}

// Registry returns the underlying Prometheus registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collected metrics in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Notify records a lifecycle event
func (c *Collector) Notify(ev *api.Event) {
	switch ev.Type {
	case api.EventTypeWorkflowRejected:
		c.workflowsRejected.WithLabelValues(rejectReason(ev.Error)).Inc()
	case api.EventTypeWorkflowStarted:
		c.workflowsInFlight.Inc()
	case api.EventTypeWorkflowCompleted:
		c.workflowsInFlight.Dec()
		result := resultLabel(ev.Success)
		c.workflowsTotal.WithLabelValues(result).Inc()
		c.workflowDuration.WithLabelValues(result).Observe(
			millis(ev.DurationMs).Seconds(),
		)
	case api.EventTypeStepStarted:
		c.stepAttempts.WithLabelValues(string(ev.Step)).Inc()
	case api.EventTypeStepRetrying:
		c.stepRetries.WithLabelValues(
			string(ev.Step), retryReason(ev.Error),
		).Inc()
	case api.EventTypeStepCompleted, api.EventTypeStepFailed:
		c.recordOutcome(ev)
		c.stepDuration.WithLabelValues(
			string(ev.Step), string(ev.Status),
		).Observe(millis(ev.DurationMs).Seconds())
	case api.EventTypeStepSkipped:
		c.recordOutcome(ev)
	}
}

func (c *Collector) recordOutcome(ev *api.Event) {
	c.stepOutcomes.WithLabelValues(string(ev.Step), string(ev.Status)).Inc()
}

// Reset clears all recorded values
func (c *Collector) Reset() {
	c.workflowsTotal.Reset()
	c.workflowsRejected.Reset()
	c.workflowDuration.Reset()
	c.workflowsInFlight.Set(0)
	c.stepAttempts.Reset()
	c.stepRetries.Reset()
	c.stepOutcomes.Reset()
	c.stepDuration.Reset()
}

func resultLabel(success bool) string {
	if success {
		return resultSuccess
	}
	return resultFailure
}

// Events carry error text rather than values, so classification is by the
// sentinel messages
func rejectReason(msg string) string {
	if strings.HasPrefix(msg, api.ErrCyclicDependency.Error()) {
		return reasonCycle
	}
	return reasonInvalid
}

func retryReason(msg string) string {
	if strings.HasPrefix(msg, api.ErrStepTimeout.Error()) {
		return "timeout"
	}
	if strings.HasPrefix(msg, api.ErrStepPanicked.Error()) {
		return "panic"
	}
	return "error"
}

func millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
