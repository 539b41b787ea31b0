package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Media vault metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediavault",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mediavault",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	// Upload initiations
	UploadsInitiatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediavault",
			Subsystem: "api",
			Name:      "uploads_initiated_total",
			Help:      "Total upload initiations",
		},
		[]string{"status"},
	)

	// Files covered by upload initiations
	UploadFilesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mediavault",
			Subsystem: "api",
			Name:      "upload_files_total",
			Help:      "Total files covered by upload initiations",
		},
	)

	// Upload completions
	UploadsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediavault",
			Subsystem: "api",
			Name:      "uploads_completed_total",
			Help:      "Total upload completions",
		},
		[]string{"status"},
	)

	// Deletions
	DeletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediavault",
			Subsystem: "api",
			Name:      "deletions_total",
			Help:      "Total object deletions by outcome",
		},
		[]string{"status"},
	)

	// Renames
	RenamesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mediavault",
			Subsystem: "api",
			Name:      "renames_total",
			Help:      "Total completed renames",
		},
	)

	// Object store operations
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediavault",
			Subsystem: "api",
			Name:      "store_operations_total",
			Help:      "Total object store operations",
		},
		[]string{"operation", "status"},
	)

	// Object store operation duration
	StoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mediavault",
			Subsystem: "api",
			Name:      "store_duration_seconds",
			Help:      "Object store operation duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"operation"},
	)

	// Presign URL duration
	PresignDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mediavault",
			Subsystem: "api",
			Name:      "presign_duration_seconds",
			Help:      "Presigned URL generation duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1},
		},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordInitiate records an upload initiation covering fileCount files
func RecordInitiate(status string, fileCount int) {
	UploadsInitiatedTotal.WithLabelValues(status).Inc()
	if status == "success" {
		UploadFilesTotal.Add(float64(fileCount))
	}
}

// RecordComplete records an upload completion
func RecordComplete(status string) {
	UploadsCompletedTotal.WithLabelValues(status).Inc()
}

// RecordDelete records the outcome counts of a delete batch
func RecordDelete(succeeded, failed int) {
	DeletionsTotal.WithLabelValues("success").Add(float64(succeeded))
	DeletionsTotal.WithLabelValues("error").Add(float64(failed))
}

// RecordRename records a completed rename
func RecordRename() {
	RenamesTotal.Inc()
}

// RecordStoreOperation records an object store operation
func RecordStoreOperation(operation, status string, durationSec float64) {
	StoreOperationsTotal.WithLabelValues(operation, status).Inc()
	StoreDuration.WithLabelValues(operation).Observe(durationSec)
}

// RecordPresign records presigned URL generation
func RecordPresign(durationSec float64) {
	PresignDuration.Observe(durationSec)
}
