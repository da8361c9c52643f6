// Package metrics exposes Prometheus counters for the conversion
// pipeline. Served on a separate port so the operator UI and scrape
// traffic never share a listener.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BatchesTotal counts finished conversion batches per vendor.
	BatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invoice2sap_batches_total",
		Help: "Conversion batches processed, by vendor.",
	}, []string{"vendor"})

	// FilesTotal counts processed PDFs by outcome.
	FilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invoice2sap_files_total",
		Help: "Uploaded PDFs processed, by parse outcome.",
	}, []string{"vendor", "status"})

	// ParseDuration tracks per-file parse latency.
	ParseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "invoice2sap_parse_duration_seconds",
		Help:    "Time to extract and parse one PDF.",
		Buckets: prometheus.DefBuckets,
	}, []string{"vendor"})

	// ExportRowsTotal counts journal rows written to exports.
	ExportRowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invoice2sap_export_rows_total",
		Help: "SAP journal rows written across all exports.",
	})

	// RetentionPurgesTotal counts batches removed by the cleanup job.
	RetentionPurgesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invoice2sap_retention_purges_total",
		Help: "Archived batches removed by the retention job.",
	})
)

// ObserveParse records one parse with its outcome and latency.
func ObserveParse(vendor, status string, elapsed time.Duration) {
	FilesTotal.WithLabelValues(vendor, status).Inc()
	ParseDuration.WithLabelValues(vendor).Observe(elapsed.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve runs the metrics listener. Blocks until the server exits.
func Serve(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}
