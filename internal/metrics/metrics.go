// Package metrics counts activation and lifecycle events. Metrics live on a
// private registry so several hosts can run in one process (and in tests)
// without colliding on the global one. A nil *Recorder ignores every call.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "unithost"

// Write reasons.
const (
	ReasonRepair = "repair"
	ReasonUpdate = "update"
)

// Lifecycle phases.
const (
	PhaseInit      = "init"
	PhaseAfterInit = "after_init"
)

// Recorder holds the unithost metrics.
type Recorder struct {
	registry *prometheus.Registry

	writes            *prometheus.CounterVec
	writeFailures     *prometheus.CounterVec
	reconcileFailures *prometheus.CounterVec
	lifecycleCalls    *prometheus.CounterVec
	activeUnits       *prometheus.GaugeVec
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		writes: newCounterVec("activation", "writes_total",
			"Activation record writes by category and reason.", "category", "reason"),
		writeFailures: newCounterVec("activation", "write_failures_total",
			"Activation record writes that failed and were discarded.", "category"),
		reconcileFailures: newCounterVec("reconcile", "failures_total",
			"Reconciliation passes that degraded to an empty result.", "category"),
		lifecycleCalls: newCounterVec("lifecycle", "calls_total",
			"Unit lifecycle calls by category and phase.", "category", "phase"),
		activeUnits: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_units",
			Help:      "Units in the merged active set after the last run.",
		}, []string{"category"}),
	}
	r.registry.MustRegister(r.writes, r.writeFailures, r.reconcileFailures, r.lifecycleCalls, r.activeUnits)
	return r
}

func newCounterVec(subsystem, name, help string, labelNames ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labelNames)
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ActivationWrite counts a record write.
func (r *Recorder) ActivationWrite(category, reason string) {
	if r == nil {
		return
	}
	r.writes.WithLabelValues(category, reason).Inc()
}

// ActivationWriteFailure counts a record write that failed.
func (r *Recorder) ActivationWriteFailure(category string) {
	if r == nil {
		return
	}
	r.writeFailures.WithLabelValues(category).Inc()
}

// ReconcileFailure counts a reconciliation pass that degraded to empty.
func (r *Recorder) ReconcileFailure(category string) {
	if r == nil {
		return
	}
	r.reconcileFailures.WithLabelValues(category).Inc()
}

// LifecycleCall counts one Init or AfterInit invocation.
func (r *Recorder) LifecycleCall(category, phase string) {
	if r == nil {
		return
	}
	r.lifecycleCalls.WithLabelValues(category, phase).Inc()
}

// SetActiveUnits records the size of a category's merged active set.
func (r *Recorder) SetActiveUnits(category string, n int) {
	if r == nil {
		return
	}
	r.activeUnits.WithLabelValues(category).Set(float64(n))
}

// WriteTextfile writes every metric to path in the node exporter textfile
// format. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile %s: %w", path, err)
	}
	return nil
}
