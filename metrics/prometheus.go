// Package metrics records estimation turns with Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder counts turns by outcome, estimates by service and
// collaborator failures by kind.
type PrometheusRecorder struct {
	turnsTotal     *prometheus.CounterVec
	turnDuration   *prometheus.HistogramVec
	estimatesTotal *prometheus.CounterVec
	failuresTotal  *prometheus.CounterVec
}

// NewPrometheusRecorder registers its collectors with reg. A nil reg uses
// the default registerer.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		turnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "estimagent_turns_total",
				Help: "Total number of dialogue turns by outcome",
			},
			[]string{"outcome"},
		),
		turnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "estimagent_turn_duration_seconds",
				Help:    "Duration of dialogue turns in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		estimatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "estimagent_estimates_total",
				Help: "Total number of computed estimates by service",
			},
			[]string{"service"},
		),
		failuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "estimagent_collaborator_failures_total",
				Help: "Total number of failed extraction, image or dialogue calls",
			},
			[]string{"kind"},
		),
	}
}

func (p *PrometheusRecorder) ObserveTurn(outcome string, d time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	p.turnsTotal.WithLabelValues(outcome).Inc()
	p.turnDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncEstimate(service string) {
	p.estimatesTotal.WithLabelValues(service).Inc()
}

func (p *PrometheusRecorder) IncCollaboratorFailure(kind string) {
	p.failuresTotal.WithLabelValues(kind).Inc()
}
