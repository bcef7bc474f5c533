package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsProcessed counts processed rows by source and outcome state.
	RowsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_rows_processed_total",
			Help: "Total number of ingested rows by outcome",
		},
		[]string{"source", "outcome"},
	)

	// ChunkDuration tracks how long one chunk takes to process.
	ChunkDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_chunk_duration_seconds",
			Help:    "Duration of one processed chunk in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"mode"},
	)

	// JobsActive tracks the number of pipeline passes currently running.
	JobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingest_jobs_active",
			Help: "Number of pipeline passes currently in flight",
		},
	)

	// KeyConflicts counts commits that lost the insert-if-absent race and
	// were reclassified as duplicates.
	KeyConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_key_conflicts_total",
			Help: "Total number of natural-key conflicts observed at commit time",
		},
	)
)
