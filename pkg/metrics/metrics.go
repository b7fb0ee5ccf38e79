package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	dbQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Database query latency by operation and table.",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"operation", "table"})

	registryLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registry_lookups_total",
		Help: "Company registry lookups by provider and outcome.",
	}, []string{"provider", "outcome"})

	registryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "registry_lookup_duration_seconds",
		Help:    "Company registry provider latency.",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"provider"})

	taxIDValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nip_validations_total",
		Help: "Tax ID validations by result.",
	}, []string{"result"})

	jobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "job_runs_total",
		Help: "Background job executions by job and outcome.",
	}, []string{"job", "outcome"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Background job execution time.",
		Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"job"})
)

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordDBQuery observes a single database statement.
func RecordDBQuery(operation, table string, elapsed time.Duration) {
	dbQueryDuration.WithLabelValues(operation, table).Observe(elapsed.Seconds())
}

// RecordRegistryLookup counts a provider call and observes its latency.
func RecordRegistryLookup(provider, outcome string, elapsed time.Duration) {
	registryLookups.WithLabelValues(provider, outcome).Inc()
	registryDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// RecordTaxIDValidation counts a validation result ("valid" or the failure kind).
func RecordTaxIDValidation(result string) {
	taxIDValidations.WithLabelValues(result).Inc()
}

// RecordJobRun counts a job execution ("success", "error" or "panic") and observes its duration.
func RecordJobRun(job, outcome string, elapsed time.Duration) {
	jobRuns.WithLabelValues(job, outcome).Inc()
	jobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}
