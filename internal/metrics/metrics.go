// Package metrics exposes the pipeline's own operational counters via
// Prometheus, grounded on runZeroInc-sockstats' and
// malbeclabs-doublezero's shared dependency on
// github.com/prometheus/client_golang. This is instrumentation of the
// core itself (ingest/drop/segment counts), not a flow collector or
// alerting system.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder wraps the counters the ingest pipeline and store update. A
// nil *Recorder is a valid no-op recorder for every recording method, so
// call sites never need a nil check around an optional instrumentation
// path.
type Recorder struct {
	registry *prometheus.Registry

	eventsIngested   prometheus.Counter
	eventsDropped    prometheus.Counter
	segmentsActive   prometheus.Gauge
	segmentsEvicted  prometheus.Counter
}

// New returns a Recorder registered against a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		eventsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nettop_events_ingested_total",
			Help: "Total event records handed to the store, including records it skips for a negative return value.",
		}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nettop_events_dropped_total",
			Help: "Total event records the source reported as dropped before ingest.",
		}),
		segmentsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nettop_segments_active",
			Help: "Current number of segments held in the store ring.",
		}),
		segmentsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nettop_segments_evicted_total",
			Help: "Total segments evicted from the store ring to stay within capacity.",
		}),
	}
	reg.MustRegister(r.eventsIngested, r.eventsDropped, r.segmentsActive, r.segmentsEvicted)
	return r
}

// IngestBatch records n records handed to the store in one batch.
func (r *Recorder) IngestBatch(n int) {
	if r == nil {
		return
	}
	r.eventsIngested.Add(float64(n))
}

// Drop records n records the source reported as lost.
func (r *Recorder) Drop(n uint64) {
	if r == nil {
		return
	}
	r.eventsDropped.Add(float64(n))
}

// SetActiveSegments sets the current segment ring length.
func (r *Recorder) SetActiveSegments(n int) {
	if r == nil {
		return
	}
	r.segmentsActive.Set(float64(n))
}

// Evict records one segment eviction.
func (r *Recorder) Evict() {
	if r == nil {
		return
	}
	r.segmentsEvicted.Inc()
}

// Handler returns the HTTP handler the CLI mounts at --prom-addr.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
