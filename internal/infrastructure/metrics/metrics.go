package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scan-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "focusnote",
			Subsystem: "scan_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "focusnote",
			Subsystem: "scan_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"method", "endpoint"},
	)

	// Scan pipeline outcomes
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "focusnote",
			Subsystem: "scan_api",
			Name:      "scans_total",
			Help:      "Scan submissions by outcome",
		},
		[]string{"status"},
	)

	// Pages per scan
	ScanImages = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "focusnote",
			Subsystem: "scan_api",
			Name:      "scan_images",
			Help:      "Number of images per successful scan",
			Buckets:   []float64{1, 2, 3, 5, 8, 10},
		},
	)

	// Upstream calls
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "focusnote",
			Subsystem: "scan_api",
			Name:      "upstream_calls_total",
			Help:      "Calls to the conversion and chat services",
		},
		[]string{"operation", "status"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "focusnote",
			Subsystem: "scan_api",
			Name:      "upstream_duration_seconds",
			Help:      "Upstream call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"operation"},
	)

	// AI replies, split by whether the chat service answered
	AIRepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "focusnote",
			Subsystem: "scan_api",
			Name:      "ai_replies_total",
			Help:      "AI reply requests by delivery outcome",
		},
		[]string{"delivered"},
	)

	// Rows left behind by a partially failed scan
	OrphanedArtifactsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "focusnote",
			Subsystem: "scan_api",
			Name:      "orphaned_records_total",
			Help:      "Conversations and artifacts left behind by partially failed scans",
		},
	)

	// Best-effort cleanup failures
	CleanupFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "focusnote",
			Subsystem: "scan_api",
			Name:      "cleanup_failures_total",
			Help:      "Failed best-effort cleanups",
		},
		[]string{"kind"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordScan records a scan pipeline outcome
func RecordScan(status string, images int) {
	ScansTotal.WithLabelValues(status).Inc()
	if status == "success" {
		ScanImages.Observe(float64(images))
	}
}

// RecordUpstream records one call to an external service
func RecordUpstream(operation, status string, durationSec float64) {
	UpstreamCallsTotal.WithLabelValues(operation, status).Inc()
	UpstreamDuration.WithLabelValues(operation).Observe(durationSec)
}

// RecordAIReply records whether the assistant answer came from the chat service
func RecordAIReply(delivered bool) {
	AIRepliesTotal.WithLabelValues(strconv.FormatBool(delivered)).Inc()
}

// RecordOrphans records records left without their siblings
func RecordOrphans(count int) {
	if count > 0 {
		OrphanedArtifactsTotal.Add(float64(count))
	}
}

// RecordCleanupFailure records a swallowed cleanup error
func RecordCleanupFailure(kind string) {
	CleanupFailuresTotal.WithLabelValues(kind).Inc()
}
