// Package metrics exports bridge events as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/framebridge/pkg/bridge"
	"github.com/bft-labs/framebridge/pkg/embedded"
)

const namespace = "framebridge"

// Metrics is a bridge.EventHandler that records every event on its own
// registry.
type Metrics struct {
	registry *prometheus.Registry

	transitions  *prometheus.CounterVec
	state        prometheus.Gauge
	steps        *prometheus.CounterVec
	stepDuration prometheus.Histogram
	syncs        *prometheus.CounterVec
	syncDuration *prometheus.HistogramVec
}

var _ bridge.EventHandler = (*Metrics)(nil)

// New creates metrics on a fresh registry that also carries the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Lifecycle transitions by source and target state.",
		}, []string{"from", "to"}),
		state: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "Current lifecycle state (0=Uninitialized ... 7=Failed).",
		}),
		steps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Application steps by outcome.",
		}, []string{"status"}),
		stepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of one application step.",
			Buckets:   []float64{.001, .002, .004, .008, .016, .033, .05, .1, .25, 1},
		}),
		syncs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_total",
			Help:      "Finished storage operations by direction, trigger and result.",
		}, []string{"direction", "trigger", "result"}),
		syncDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of storage operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"direction"}),
	}
}

// Registry returns the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) OnStateChange(e bridge.StateChangeEvent) {
	m.transitions.WithLabelValues(e.Previous.String(), e.Current.String()).Inc()
	m.state.Set(float64(e.Current))
}

func (m *Metrics) OnStep(e bridge.StepEvent) {
	m.steps.WithLabelValues(stepStatus(e.Status)).Inc()
	m.stepDuration.Observe(e.Duration.Seconds())
}

func (m *Metrics) OnSync(e bridge.SyncEvent) {
	result := "ok"
	if e.Err != nil {
		result = "error"
	}
	trigger := e.Trigger
	if trigger == "" {
		trigger = "unknown"
	}
	m.syncs.WithLabelValues(e.Direction.String(), trigger, result).Inc()
	m.syncDuration.WithLabelValues(e.Direction.String()).Observe(e.Duration.Seconds())
}

func stepStatus(s embedded.Status) string {
	switch s {
	case embedded.StatusOK:
		return "ok"
	case embedded.StatusQuit:
		return "quit"
	default:
		return "failed"
	}
}
