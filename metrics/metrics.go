// Package metrics exports Prometheus metrics for the session hub and the
// HTTP actions.
package metrics

import (
	"net/http"

	"github.com/goliatone/go-greeter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ greeter.HubObserver = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the greeter
type Metrics struct {
	// Hub metrics
	Subscriptions prometheus.Gauge
	Publishes     *prometheus.CounterVec
	Deliveries    prometheus.Counter

	// Action metrics
	Actions *prometheus.CounterVec
	Logins  *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		Subscriptions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "greeter_hub_subscriptions",
				Help: "Number of open session subscriptions",
			},
		),
		Publishes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "greeter_hub_publishes_total",
				Help: "Total number of session changes published",
			},
			[]string{"status"},
		),
		Deliveries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "greeter_hub_deliveries_total",
				Help: "Total number of session changes handed to subscribers",
			},
		),
		Actions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "greeter_actions_total",
				Help: "Total number of session actions received",
			},
			[]string{"action"},
		),
		Logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "greeter_logins_total",
				Help: "Total number of sign-in attempts",
			},
			[]string{"result"},
		),
	}
}

// NewRegistry creates a new Prometheus registry with metrics
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	return reg, NewMetrics(reg)
}

// HandlerFor returns an HTTP handler for a specific registry
func HandlerFor(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func (m *Metrics) Subscribed(string) {
	m.Subscriptions.Inc()
}

func (m *Metrics) Unsubscribed(string) {
	m.Subscriptions.Dec()
}

func (m *Metrics) Published(_ string, session greeter.Session, delivered int) {
	m.Publishes.WithLabelValues(string(session.Status)).Inc()
	m.Deliveries.Add(float64(delivered))
}

// ObserveAction counts a begin-session or end-session request
func (m *Metrics) ObserveAction(action string) {
	m.Actions.WithLabelValues(action).Inc()
}

// ObserveLogin counts a sign-in attempt by result
func (m *Metrics) ObserveLogin(result string) {
	m.Logins.WithLabelValues(result).Inc()
}
