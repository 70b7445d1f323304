package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Job metrics
var (
	// JobsTotal counts finished download jobs by outcome.
	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gdl_jobs_total",
			Help: "Total number of finished download jobs.",
		},
		[]string{"outcome"},
	)

	// JobsInFlight tracks jobs registered and not yet finalized.
	JobsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gdl_jobs_in_flight",
			Help: "Number of download jobs currently running.",
		},
	)

	// JobDuration observes how long jobs ran, including message extraction.
	JobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gdl_job_duration_seconds",
			Help:    "Duration of download jobs.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
	)

	// FilesTotal counts files reported in successful summaries.
	FilesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gdl_files_total",
			Help: "Total number of files returned in extraction summaries.",
		},
	)

	// DatasetImagesTotal counts images written by the dataset exporter.
	DatasetImagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gdl_dataset_images_total",
			Help: "Total number of dataset images exported.",
		},
		[]string{"split"},
	)
)

// Outcome labels for JobsTotal
const (
	OutcomeSucceeded       = "succeeded"
	OutcomeExecutionFailed = "execution_failed"
	OutcomeNoResults       = "no_results"
	OutcomeCountMismatch   = "count_mismatch"
	OutcomeError           = "error"
)

func init() {
	prometheus.MustRegister(
		JobsTotal,
		JobsInFlight,
		JobDuration,
		FilesTotal,
		DatasetImagesTotal,
	)
}
