package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cache lookup outcomes recorded by ObserveCache.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
	// CacheError counts backend failures that fell through to computation.
	CacheError = "error"
)

// EngineCollector exposes propagation and planning metrics.
type EngineCollector struct {
	gatherer prometheus.Gatherer

	KeplerNonConvergence prometheus.Counter
	RoutePlans           *prometheus.CounterVec
	RoutePlanDuration    prometheus.Histogram
	PositionCache        *prometheus.CounterVec
}

// NewEngineCollector registers engine metrics on reg (default registry when nil).
func NewEngineCollector(reg prometheus.Registerer) (*EngineCollector, error) {
	reg, gatherer := resolveRegistry(reg)

	nonConvergence, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "navigator_kepler_nonconvergence_total",
		Help: "Kepler solves that hit the iteration cap and returned a best estimate.",
	}), "navigator_kepler_nonconvergence_total")
	if err != nil {
		return nil, err
	}

	plans, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "navigator_route_plans_total",
		Help: "Computed routes by search strategy.",
	}, []string{"strategy"}), "navigator_route_plans_total")
	if err != nil {
		return nil, err
	}

	planDuration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "navigator_route_plan_duration_seconds",
		Help:    "Wall time spent planning a route.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}), "navigator_route_plan_duration_seconds")
	if err != nil {
		return nil, err
	}

	cache, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "navigator_position_cache_total",
		Help: "Position cache lookups by result.",
	}, []string{"result"}), "navigator_position_cache_total")
	if err != nil {
		return nil, err
	}

	return &EngineCollector{
		gatherer:             gatherer,
		KeplerNonConvergence: nonConvergence,
		RoutePlans:           plans,
		RoutePlanDuration:    planDuration,
		PositionCache:        cache,
	}, nil
}

// Gatherer returns the registry the collector was registered on.
func (c *EngineCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// IncNonConvergence counts one non-converged Kepler solve.
func (c *EngineCollector) IncNonConvergence() {
	if c == nil {
		return
	}
	c.KeplerNonConvergence.Inc()
}

// ObservePlan records a finished route computation.
func (c *EngineCollector) ObservePlan(strategy string, d time.Duration) {
	if c == nil {
		return
	}
	c.RoutePlans.WithLabelValues(strategy).Inc()
	c.RoutePlanDuration.Observe(d.Seconds())
}

// ObserveCache records a position cache lookup result.
func (c *EngineCollector) ObserveCache(result string) {
	if c == nil {
		return
	}
	c.PositionCache.WithLabelValues(result).Inc()
}
