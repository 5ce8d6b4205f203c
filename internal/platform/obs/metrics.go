package obs

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stop-sequencing-service/internal/domain"
)

// Metrics bundles the Prometheus collectors for route planning.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	Plans        *prometheus.CounterVec
	PlanDuration *prometheus.HistogramVec
	Stops        *prometheus.CounterVec
}

// NewMetrics registers the planning collectors against reg, defaulting to
// the global Prometheus registry when nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	plans, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "route_plans_total",
		Help: "Route plans produced, labeled by entry point and outcome.",
	}, []string{"source", "outcome"}), "route_plans_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "route_plan_duration_seconds",
		Help:    "Latency of producing a route plan, including data loading.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"source"}), "route_plan_duration_seconds")
	if err != nil {
		return nil, err
	}

	stops, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "route_plan_stops_total",
		Help: "Stops seen by the planner, labeled by how a coordinate was (or was not) obtained.",
	}, []string{"resolution"}), "route_plan_stops_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		gatherer:     gatherer,
		Plans:        plans,
		PlanDuration: duration,
		Stops:        stops,
	}, nil
}

// ObservePlan records a finished plan for source ("inline", "driver", "batch").
// plan may be nil when planning failed.
func (m *Metrics) ObservePlan(source string, plan *domain.RoutePlan, took time.Duration) {
	if m == nil {
		return
	}

	m.PlanDuration.WithLabelValues(source).Observe(took.Seconds())

	if plan == nil {
		m.Plans.WithLabelValues(source, "error").Inc()
		return
	}

	outcome := "optimized"
	if plan.TotalMinutes == nil {
		outcome = "not_optimized"
	}
	m.Plans.WithLabelValues(source, outcome).Inc()

	for _, s := range plan.Stops {
		switch {
		case s.Position == nil:
			m.Stops.WithLabelValues("unmatched").Inc()
		case s.MatchOrigin == domain.MatchOriginPreset:
			m.Stops.WithLabelValues("preset").Inc()
		default:
			m.Stops.WithLabelValues("matched").Inc()
		}
	}
}

// Handler exposes the registry the collectors were registered with.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
