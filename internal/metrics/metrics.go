// Package metrics exports annotation pass statistics to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Veraticus/fxlens/internal/engine"
)

const namespace = "fxlens"

// Recorder implements engine.Recorder with Prometheus collectors.
type Recorder struct {
	passes         *prometheus.CounterVec
	candidates     *prometheus.CounterVec
	conversions    *prometheus.CounterVec
	hiddenPoints   prometheus.Counter
	fallbacks      *prometheus.CounterVec
	regionFailures *prometheus.CounterVec
}

var _ engine.Recorder = (*Recorder)(nil)

// NewRecorder registers the pass collectors on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		passes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "passes_total",
				Help:      "Total number of annotation passes",
			},
			[]string{"kind"},
		),
		candidates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "candidates_total",
				Help:      "Candidate regions found by strategy",
			},
			[]string{"strategy"},
		),
		conversions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversions_total",
				Help:      "Amounts annotated by target currency",
			},
			[]string{"target"},
		),
		hiddenPoints: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "hidden_points_total",
				Help:      "Loyalty point elements hidden",
			},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallbacks_total",
				Help:      "Target currency fallbacks after a pass converted nothing",
			},
			[]string{"from", "to"},
		),
		regionFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "region_failures_total",
				Help:      "Regions skipped after a processing failure",
			},
			[]string{"strategy"},
		),
	}
}

// ObservePass records one pass.
func (r *Recorder) ObservePass(kind engine.PassKind, stats engine.PassStats) {
	r.passes.WithLabelValues(string(kind)).Inc()
	r.candidates.WithLabelValues("text").Add(float64(stats.TextUnits))
	r.candidates.WithLabelValues("merged").Add(float64(stats.Merged))
	r.candidates.WithLabelValues("split").Add(float64(stats.Split))
	if stats.Converted > 0 {
		r.conversions.WithLabelValues(stats.Target).Add(float64(stats.Converted))
	}
	r.hiddenPoints.Add(float64(stats.Hidden))
}

// ObserveFallback records a switch of target currency.
func (r *Recorder) ObserveFallback(from, to string) {
	r.fallbacks.WithLabelValues(from, to).Inc()
}

// ObserveRegionFailure records a region the pass gave up on.
func (r *Recorder) ObserveRegionFailure(strategy string) {
	r.regionFailures.WithLabelValues(strategy).Inc()
}
