package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path"},
	)

	// OpDuration is fed by Time for every timed operation.
	OpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "operation_duration_seconds", Help: "Duration of timed operations.", Buckets: prometheus.DefBuckets},
		[]string{"op", "outcome"},
	)

	SolverCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solver_calls_total", Help: "External solver calls by outcome."},
		[]string{"outcome"},
	)
	SolverSplits = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "solver_split_fallbacks_total", Help: "Requests split after a too-many-vehicles refusal."},
	)
	PlanRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "plan_runs_total", Help: "Planning runs by source (solver, heuristic) and degradation."},
		[]string{"source", "degraded"},
	)
	GeocodeLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "geocode_lookups_total", Help: "Geocode lookups by outcome (cache_hit, resolved, failed)."},
		[]string{"outcome"},
	)
)

var regOnce sync.Once

// RegisterDefault registers the service collectors on Registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(
			HTTPRequests,
			HTTPDuration,
			OpDuration,
			SolverCalls,
			SolverSplits,
			PlanRuns,
			GeocodeLookups,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}
