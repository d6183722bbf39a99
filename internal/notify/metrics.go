package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dispatch outcomes recorded on careerplanner_notify_dispatched_total.
const (
	outcomeSent     = "sent"
	outcomeFailed   = "failed"
	outcomeDropped  = "dropped"
	outcomeDisabled = "disabled"
	outcomeLost     = "lost"
)

// Metrics holds the dispatcher's Prometheus collectors.
type Metrics struct {
	dispatched *prometheus.CounterVec
	queueDepth prometheus.Gauge
}

// NewMetrics registers the dispatcher collectors with reg. A nil reg
// yields unregistered collectors, which is what tests usually want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		dispatched: f.NewCounterVec(prometheus.CounterOpts{
			Name: "careerplanner_notify_dispatched_total",
			Help: "Notifications handled by the dispatcher by kind and outcome",
		}, []string{"kind", "outcome"}),
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "careerplanner_notify_queue_depth",
			Help: "Notifications waiting in the dispatch queue",
		}),
	}
}
