// Package metrics exposes Prometheus counters for the parsing pipeline and
// the simulation engine. The recorder is optional everywhere it is injected:
// a nil *Recorder is a no-op, which keeps tests free of registry wiring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder wraps the pipeline's Prometheus instruments.
type Recorder struct {
	processed   prometheus.Counter
	parsed      *prometheus.CounterVec
	failed      prometheus.Counter
	duplicates  prometheus.Counter
	transitions *prometheus.CounterVec
	openPos     prometheus.Gauge
}

// New creates a recorder registered against the given registerer. Pass
// prometheus.DefaultRegisterer in production wiring.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		processed: factory.NewCounter(prometheus.CounterOpts{
			Name: "signalsim_messages_processed_total",
			Help: "Total number of inbound messages routed through the dispatcher",
		}),
		parsed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signalsim_signals_parsed_total",
			Help: "Total number of signals successfully parsed, by method",
		}, []string{"method"}),
		failed: factory.NewCounter(prometheus.CounterOpts{
			Name: "signalsim_parse_failures_total",
			Help: "Total number of messages no parser could handle",
		}),
		duplicates: factory.NewCounter(prometheus.CounterOpts{
			Name: "signalsim_duplicate_messages_total",
			Help: "Total number of messages dropped by the dedup window",
		}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signalsim_position_transitions_total",
			Help: "Total number of position lifecycle transitions, by status",
		}, []string{"status"}),
		openPos: factory.NewGauge(prometheus.GaugeOpts{
			Name: "signalsim_open_positions",
			Help: "Number of positions currently monitored by the engine",
		}),
	}
}

// IncProcessed records one routed message.
func (r *Recorder) IncProcessed() {
	if r == nil {
		return
	}
	r.processed.Inc()
}

// IncParsed records one successfully parsed signal for a method tag.
func (r *Recorder) IncParsed(method string) {
	if r == nil {
		return
	}
	r.parsed.WithLabelValues(method).Inc()
}

// IncFailed records one unparseable message.
func (r *Recorder) IncFailed() {
	if r == nil {
		return
	}
	r.failed.Inc()
}

// IncDuplicate records one deduplicated message.
func (r *Recorder) IncDuplicate() {
	if r == nil {
		return
	}
	r.duplicates.Inc()
}

// IncTransition records one position lifecycle transition.
func (r *Recorder) IncTransition(status string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(status).Inc()
}

// SetOpenPositions updates the open-position gauge.
func (r *Recorder) SetOpenPositions(n int) {
	if r == nil {
		return
	}
	r.openPos.Set(float64(n))
}
