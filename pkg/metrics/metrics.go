package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sizefit_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sizefit_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Search metrics
	FitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sizefit_fits_total",
			Help: "Total number of size-targeting searches",
		},
		[]string{"outcome"}, // within_range, below_min, above_max, error
	)

	FitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sizefit_fit_duration_seconds",
			Help:    "Search duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"format"}, // jpeg, webp
	)

	FitEncodes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sizefit_fit_encode_attempts",
			Help:    "Encode attempts per search",
			Buckets: []float64{1, 2, 4, 8, 12, 16, 20, 25, 30},
		},
	)

	FitBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sizefit_fit_bytes",
			Help:    "Search input/output bytes",
			Buckets: []float64{1024, 10240, 102400, 512000, 1048576, 5242880, 10485760},
		},
		[]string{"direction"}, // input, output
	)

	// Queue/Pool metrics
	WorkerPoolQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sizefit_worker_pool_queue_size",
			Help: "Current number of jobs in the search pool queue",
		},
	)

	WorkerPoolActiveJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sizefit_worker_pool_active_jobs",
			Help: "Current number of running searches",
		},
	)

	// Rate limiting metrics
	RateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sizefit_rate_limit_exceeded_total",
			Help: "Total number of requests rejected due to rate limiting",
		},
		[]string{"ip_prefix"}, // First octet for privacy
	)

	// Concurrency metrics
	ConcurrentRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sizefit_concurrent_requests",
			Help: "Current number of concurrent requests being processed",
		},
	)

	ConcurrencyLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sizefit_concurrency_limit_exceeded_total",
			Help: "Total number of requests rejected due to concurrency limit",
		},
	)

	// Encode buffer pool metrics
	BufferPoolHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sizefit_buffer_pool_hits_total",
			Help: "Total number of encode buffer pool hits",
		},
		[]string{"size"}, // small, medium, large
	)

	BufferPoolMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sizefit_buffer_pool_misses_total",
			Help: "Total number of encode buffer pool misses",
		},
		[]string{"size"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, duration float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordFit records a completed size-targeting search
func RecordFit(outcome, format string, duration float64, inputBytes, outputBytes, encodes int) {
	FitsTotal.WithLabelValues(outcome).Inc()
	FitDuration.WithLabelValues(format).Observe(duration)
	FitEncodes.Observe(float64(encodes))
	FitBytes.WithLabelValues("input").Observe(float64(inputBytes))
	FitBytes.WithLabelValues("output").Observe(float64(outputBytes))
}

// RecordFitError records a search that ended in an error
func RecordFitError() {
	FitsTotal.WithLabelValues("error").Inc()
}

// SearchStarted marks a search as running and records the queue depth
func SearchStarted(queueSize int) {
	WorkerPoolQueueSize.Set(float64(queueSize))
	WorkerPoolActiveJobs.Inc()
}

// SearchFinished marks a search as done and records the queue depth
func SearchFinished(queueSize int) {
	WorkerPoolQueueSize.Set(float64(queueSize))
	WorkerPoolActiveJobs.Dec()
}

// RecordRateLimitExceeded records a rate limit rejection
func RecordRateLimitExceeded(ipPrefix string) {
	RateLimitExceeded.WithLabelValues(ipPrefix).Inc()
}

// UpdateConcurrency updates the concurrent request gauge
func UpdateConcurrency(count int) {
	ConcurrentRequests.Set(float64(count))
}

// RecordConcurrencyLimitExceeded records a concurrency limit rejection
func RecordConcurrencyLimitExceeded() {
	ConcurrencyLimitExceeded.Inc()
}

// RecordBufferPoolHit records an encode buffer pool hit
func RecordBufferPoolHit(size string) {
	BufferPoolHits.WithLabelValues(size).Inc()
}

// RecordBufferPoolMiss records an encode buffer pool miss
func RecordBufferPoolMiss(size string) {
	BufferPoolMisses.WithLabelValues(size).Inc()
}
