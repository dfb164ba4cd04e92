package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "operashorts_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "operashorts_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Project Metrics
	ProjectsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "operashorts_projects_created_total",
			Help: "Total number of production projects created",
		},
		[]string{"source"},
	)

	SourceUploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "operashorts_source_upload_size_bytes",
			Help:    "Size of uploaded source videos in bytes",
			Buckets: prometheus.ExponentialBuckets(1024*1024, 2, 12), // 1MB to 2GB
		},
	)

	// Stage Metrics
	StageStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "operashorts_stage_started_total",
			Help: "Total number of pipeline stages started",
		},
		[]string{"stage"},
	)

	StageCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "operashorts_stage_completed_total",
			Help: "Total number of pipeline stages finished, by outcome",
		},
		[]string{"stage", "outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "operashorts_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17 minutes
		},
		[]string{"stage"},
	)

	StagesInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "operashorts_stages_in_progress",
			Help: "Number of stages currently running",
		},
	)

	StageRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "operashorts_stage_rejections_total",
			Help: "Total number of stage triggers rejected before dispatch",
		},
		[]string{"stage", "reason"},
	)

	// Translation Metrics
	TranslationFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "operashorts_translation_fallbacks_total",
			Help: "Languages that fell back to working-language content",
		},
		[]string{"language"},
	)

	// External Call Metrics
	ExternalCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "operashorts_external_calls_total",
			Help: "Total number of calls to external services",
		},
		[]string{"service", "status"},
	)

	ExternalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "operashorts_external_call_duration_seconds",
			Help:    "External service call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 13),
		},
		[]string{"service"},
	)

	// Queue Metrics
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "operashorts_queue_depth",
			Help: "Number of messages waiting in a queue",
		},
		[]string{"queue"},
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "operashorts_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "operashorts_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Storage Metrics
	ExportFilesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "operashorts_export_files_total",
			Help: "Total number of export artifacts written",
		},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "operashorts_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordProjectCreated records a project creation
func RecordProjectCreated(source string, sizeBytes int64) {
	ProjectsCreatedTotal.WithLabelValues(source).Inc()
	if sizeBytes > 0 {
		SourceUploadSizeBytes.Observe(float64(sizeBytes))
	}
}

// RecordStageStarted records a stage beginning execution
func RecordStageStarted(stage string) {
	StageStartedTotal.WithLabelValues(stage).Inc()
	StagesInProgress.Inc()
}

// RecordStageFinished records a stage outcome and its duration
func RecordStageFinished(stage, outcome string, duration float64) {
	StagesInProgress.Dec()
	StageCompletedTotal.WithLabelValues(stage, outcome).Inc()
	StageDuration.WithLabelValues(stage).Observe(duration)
}

// RecordStageRejected records a trigger rejected before dispatch
func RecordStageRejected(stage, reason string) {
	StageRejectionsTotal.WithLabelValues(stage, reason).Inc()
}

// RecordTranslationFallback records a language that kept working-language content
func RecordTranslationFallback(language string) {
	TranslationFallbacksTotal.WithLabelValues(language).Inc()
}

// RecordExternalCall records a call to an external service
func RecordExternalCall(service string, duration float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ExternalCallsTotal.WithLabelValues(service, status).Inc()
	ExternalCallDuration.WithLabelValues(service).Observe(duration)
}

// UpdateQueueDepth updates the depth gauge for a queue
func UpdateQueueDepth(queue string, depth int) {
	QueueDepth.WithLabelValues(queue).Set(float64(depth))
}

// RecordCacheAccess records cache hit or miss
func RecordCacheAccess(cacheType string, hit bool) {
	if hit {
		CacheHitsTotal.WithLabelValues(cacheType).Inc()
	} else {
		CacheMissesTotal.WithLabelValues(cacheType).Inc()
	}
}

// RecordExportFiles records written export artifacts
func RecordExportFiles(count int) {
	ExportFilesTotal.Add(float64(count))
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
