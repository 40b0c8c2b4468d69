package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	engagementActions     *prometheus.CounterVec
	resourceSagaFaults    *prometheus.CounterVec
	resourceUploads       *prometheus.CounterVec
	resourceUploadLatency prometheus.Histogram
	activityEvents        *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		engagementActions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engagement_actions_total",
			Help: "Like and dislike toggles by target kind, reaction and outcome.",
		}, []string{"target", "action", "result"})

		resourceSagaFaults = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resource_saga_faults_total",
			Help: "Resource lifecycles left with the database and blob store out of step.",
		}, []string{"saga", "phase"})

		resourceUploads = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resource_uploads_total",
			Help: "Resources stored successfully by file type.",
		}, []string{"file_type"})

		resourceUploadLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "resource_upload_latency_seconds",
			Help:    "Time spent storing and persisting an uploaded resource.",
			Buckets: prometheus.DefBuckets,
		})

		activityEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activity_events_published_total",
			Help: "Activity events handed to the message bus.",
		}, []string{"result"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			engagementActions,
			resourceSagaFaults,
			resourceUploads,
			resourceUploadLatency,
			activityEvents,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// EngagementActions counts engagement toggles.
func EngagementActions() *prometheus.CounterVec {
	RegisterMetrics()
	return engagementActions
}

// ResourceSagaFaults counts unrecovered resource lifecycle failures.
func ResourceSagaFaults() *prometheus.CounterVec {
	RegisterMetrics()
	return resourceSagaFaults
}

// ResourceUploads counts stored resources.
func ResourceUploads() *prometheus.CounterVec {
	RegisterMetrics()
	return resourceUploads
}

// ResourceUploadLatency observes upload durations.
func ResourceUploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return resourceUploadLatency
}

// ActivityEvents counts published activity events.
func ActivityEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return activityEvents
}
