package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	transitions     *prom.CounterVec
	persistFailures *prom.CounterVec
	notifications   *prom.CounterVec
	activeSessions  prom.Gauge
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pawtrack",
			Name:      "transitions_total",
			Help:      "Household state transitions by action and result",
		}, []string{"action", "result"}),
		persistFailures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pawtrack",
			Name:      "persist_failures_total",
			Help:      "Persistence effects that could not be written",
		}, []string{"effect"}),
		notifications: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pawtrack",
			Name:      "notifications_total",
			Help:      "Notifications emitted by type",
		}, []string{"type"}),
		activeSessions: prom.NewGauge(prom.GaugeOpts{
			Namespace: "pawtrack",
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory",
		}),
	}
	reg.MustRegister(pr.transitions, pr.persistFailures, pr.notifications, pr.activeSessions)
	return pr
}

func (p *PrometheusRecorder) IncTransition(action, result string) {
	if p == nil {
		return
	}
	p.transitions.WithLabelValues(action, result).Inc()
}

func (p *PrometheusRecorder) IncPersistFailure(effect string) {
	if p == nil {
		return
	}
	p.persistFailures.WithLabelValues(effect).Inc()
}

func (p *PrometheusRecorder) IncNotification(typ string) {
	if p == nil {
		return
	}
	p.notifications.WithLabelValues(typ).Inc()
}

func (p *PrometheusRecorder) SetActiveSessions(n int) {
	if p == nil {
		return
	}
	p.activeSessions.Set(float64(n))
}

// HTTPHandler serves the metrics gathered by reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
