package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dietplan/engine/internal/domain"
)

// Metrics holds the service counters. All methods are safe on a nil
// receiver so callers without metrics can pass nil.
type Metrics struct {
	registry      *prometheus.Registry
	plans         prometheus.Counter
	substitutions prometheus.Counter
	resolves      *prometheus.CounterVec
	relaxed       *prometheus.CounterVec
}

// NewMetrics registers the service counters plus the Go and process
// collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		plans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dietplan_plans_generated_total",
			Help: "Diet plans generated.",
		}),
		substitutions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dietplan_substitutions_total",
			Help: "Meal substitutions applied.",
		}),
		resolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dietplan_resolve_total",
			Help: "Alternative lookups by match tier.",
		}, []string{"tier"}),
		relaxed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dietplan_restriction_relaxed_total",
			Help: "Categories served unfiltered because restrictions excluded every item.",
		}, []string{"category"}),
	}
	reg.MustRegister(
		m.plans, m.substitutions, m.resolves, m.relaxed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// PlanGenerated counts a generated plan and its relaxed categories.
func (m *Metrics) PlanGenerated(relaxed []domain.Category) {
	if m == nil {
		return
	}
	m.plans.Inc()
	for _, c := range relaxed {
		m.relaxed.WithLabelValues(string(c)).Inc()
	}
}

// Substituted counts an applied substitution.
func (m *Metrics) Substituted() {
	if m == nil {
		return
	}
	m.substitutions.Inc()
}

// Resolved counts a candidate lookup.
func (m *Metrics) Resolved(tier domain.MatchTier) {
	if m == nil {
		return
	}
	m.resolves.WithLabelValues(string(tier)).Inc()
}
