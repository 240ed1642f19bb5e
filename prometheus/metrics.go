package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Onboarding attempts by outcome ("success", "validation_error", "provisioning_error")
	OnboardingCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workspace_onboarding_total",
			Help: "Total number of workspace onboarding attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Tenant resolution outcomes ("resolved", "missing_signal", "not_found", "inaccessible", "cache_hit")
	ResolutionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workspace_resolution_total",
			Help: "Total number of tenant resolution attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Sync runs and per-workspace sync failures
	SyncRunCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "workspace_sync_runs_total",
			Help: "Total number of sync-all-tenants runs",
		},
	)

	SyncFailureCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workspace_sync_failures_total",
			Help: "Total number of per-workspace sync failures",
		},
		[]string{"workspace"},
	)

	// Login counter
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "workspace_login_total",
			Help: "Total number of login attempts",
		},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workspace_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counters by type
	ErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workspace_errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"type"},
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "workspace_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "workspace_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // operation can be "query", "insert", "update", "delete", "ddl"
	)

	// Onboarding duration end to end
	OnboardingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "workspace_onboarding_duration_seconds",
			Help:    "Duration of the full onboarding sequence in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Gauge metrics
var (
	// Active workspaces in the registry
	ActiveWorkspacesGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "workspace_active_total",
			Help: "Number of workspaces currently in ACTIVE status",
		},
	)

	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "workspace_info",
			Help: "Information about the workspace service",
		},
		[]string{"version"},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(OnboardingCounter)
	prometheus.MustRegister(ResolutionCounter)
	prometheus.MustRegister(SyncRunCounter)
	prometheus.MustRegister(SyncFailureCounter)
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(ErrorCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)
	prometheus.MustRegister(OnboardingDuration)

	// Register gauges
	prometheus.MustRegister(ActiveWorkspacesGauge)
	prometheus.MustRegister(InfoGauge)

	// Set initial service info
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Execute the request handler
			err := next(c)

			// Record request duration
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			// Record metrics
			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}

// RecordOnboarding records an onboarding attempt by outcome
func RecordOnboarding(outcome string) {
	OnboardingCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// RecordResolution records a tenant resolution attempt by outcome
func RecordResolution(outcome string) {
	ResolutionCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// RecordSyncFailure records a per-workspace sync failure
func RecordSyncFailure(workspace string) {
	SyncFailureCounter.With(prometheus.Labels{"workspace": workspace}).Inc()
}

// RecordError records an error by type
func RecordError(errorType string) {
	ErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// UpdateActiveWorkspaces updates the active workspaces gauge
func UpdateActiveWorkspaces(count int) {
	ActiveWorkspacesGauge.Set(float64(count))
}
