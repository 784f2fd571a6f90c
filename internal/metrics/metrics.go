// Package metrics provides Prometheus metrics for archive runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Scan metrics
	filesScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "archiver_files_scanned_total",
			Help: "Total number of source files scanned into the catalog",
		},
	)

	bytesScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "archiver_bytes_scanned_total",
			Help: "Total bytes of source files scanned into the catalog",
		},
	)

	// Chunk pipeline metrics
	chunksPlanned = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "archiver_chunks_planned",
			Help: "Number of chunks produced by the planner for the current run",
		},
	)

	chunkBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archiver_chunk_build_duration_seconds",
			Help:    "Time to materialize one chunk archive",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"status"},
	)

	chunkVerifyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archiver_chunk_verify_duration_seconds",
			Help:    "Time to verify one chunk archive against its plan",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"status"},
	)

	bytesArchived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "archiver_bytes_archived_total",
			Help: "Total uncompressed bytes written into chunk archives",
		},
	)

	// Upload metrics
	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archiver_uploads_total",
			Help: "Total number of chunk uploads",
		},
		[]string{"status"},
	)

	uploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "archiver_upload_duration_seconds",
			Help:    "Time to upload one chunk archive",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)
)

// RecordScannedFile records one scanned file of the given size.
func RecordScannedFile(size int64) {
	filesScanned.Inc()
	bytesScanned.Add(float64(size))
}

// SetChunksPlanned records the planner's chunk count.
func SetChunksPlanned(n int) {
	chunksPlanned.Set(float64(n))
}

// RecordChunkBuild records a chunk build attempt.
func RecordChunkBuild(d time.Duration, ok bool, bytes int64) {
	chunkBuildDuration.WithLabelValues(statusLabel(ok)).Observe(d.Seconds())
	if ok {
		bytesArchived.Add(float64(bytes))
	}
}

// RecordChunkVerify records a chunk verification attempt.
func RecordChunkVerify(d time.Duration, ok bool) {
	chunkVerifyDuration.WithLabelValues(statusLabel(ok)).Observe(d.Seconds())
}

// RecordUpload records a chunk upload attempt.
func RecordUpload(d time.Duration, ok bool) {
	uploadsTotal.WithLabelValues(statusLabel(ok)).Inc()
	uploadDuration.Observe(d.Seconds())
}

func statusLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve starts a metrics listener on addr. Intended for long archive runs;
// errors are returned, not fatal, since metrics are best-effort.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return http.ListenAndServe(addr, mux)
}
