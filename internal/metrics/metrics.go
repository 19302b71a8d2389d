// Package metrics holds the Prometheus collectors of the document analyzer.
// All collectors register with the default registry via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocumentAttempts counts every pipeline invocation, first attempts included.
	DocumentAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analyzer_document_attempts_total",
		Help: "Total number of single-document pipeline attempts",
	})

	// AttemptFailures counts failed attempts by failure kind.
	AttemptFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_attempt_failures_total",
			Help: "Total number of failed pipeline attempts",
		},
		[]string{"kind"}, // NetworkTimeout, NetworkError, ProcessingError
	)

	// TerminalFailures counts documents whose retry budget ran out.
	TerminalFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analyzer_terminal_failures_total",
		Help: "Total number of documents that failed every attempt",
	})

	BatchTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analyzer_batch_timeouts_total",
		Help: "Total number of batches that exceeded their time budget",
	})

	TimedOutDocuments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analyzer_timed_out_documents_total",
		Help: "Total number of documents still running when their batch timed out",
	})

	TaskPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analyzer_task_panics_total",
		Help: "Total number of worker tasks that panicked",
	})

	BatchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analyzer_batch_failures_total",
		Help: "Total number of batches that failed as a whole",
	})

	// Documents counts final per-document outcomes of completed runs.
	Documents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_documents_total",
			Help: "Total number of documents by final outcome",
		},
		[]string{"outcome"}, // success, failed
	)

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "analyzer_run_duration_seconds",
		Help:    "Wall-clock duration of orchestration runs",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	})
)
