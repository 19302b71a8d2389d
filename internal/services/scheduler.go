package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/metrics"
	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/models"
	"golang.org/x/sync/errgroup"
)

// Batch is an order-preserving slice of references processed under one
// worker pool and one time budget.
type Batch struct {
	Index      int
	References []string
	Timeout    time.Duration
}

// NewBatch derives the batch budget as the per-document budget times the
// number of documents.
func NewBatch(index int, refs []string, documentBudget time.Duration) Batch {
	return Batch{
		Index:      index,
		References: refs,
		Timeout:    documentBudget * time.Duration(len(refs)),
	}
}

// DocumentRunner produces a final result for one reference. RetryController
// implements it.
type DocumentRunner interface {
	Process(ctx context.Context, ref string) models.DocumentResult
}

// Scheduler runs every document of a batch with at most Workers running at once.
//
// Cancellation at the batch deadline is cooperative: tasks see their context
// cancelled, but a download or model call that ignores it keeps its goroutine
// and worker slot until it returns. Such late results are discarded.
type Scheduler struct {
	runner  DocumentRunner
	workers int
	logger  *slog.Logger
}

func NewScheduler(runner DocumentRunner, workers int, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{runner: runner, workers: workers, logger: logger}
}

// Run processes the batch and returns its results in reference order. Tasks
// that have not finished by the batch deadline get a timeout entry. An error
// means the batch could not be run at all.
func (s *Scheduler) Run(ctx context.Context, batch Batch) (*models.ResultSet, error) {
	if s.workers <= 0 {
		return nil, fmt.Errorf("worker limit must be positive, got %d", s.workers)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logCtx := s.logger.With("batch", batch.Index, "batchSize", len(batch.References))
	logCtx.Info("Starting batch.", "timeout", batch.Timeout.String(), "workers", s.workers)

	bctx, cancel := context.WithTimeout(ctx, batch.Timeout)
	defer cancel()

	var (
		mu     sync.Mutex
		slots  = make([]*models.DocumentResult, len(batch.References))
		sealed bool
	)
	record := func(i int, r models.DocumentResult) {
		mu.Lock()
		defer mu.Unlock()
		if sealed {
			return
		}
		slots[i] = &r
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		var eg errgroup.Group
		eg.SetLimit(s.workers)
		for i, ref := range batch.References {
			eg.Go(func() error {
				if bctx.Err() != nil {
					return nil
				}
				defer func() {
					if p := recover(); p != nil {
						metrics.TaskPanics.Inc()
						logCtx.Error("Document task panicked.", "document", DocumentName(ref), "panic", p)
						record(i, models.NewFailure(models.KindTaskPanic, fmt.Sprintf("Future execution error: %v", p)))
					}
				}()
				record(i, s.runner.Process(bctx, ref))
				return nil
			})
		}
		_ = eg.Wait()
	}()

	finished := false
	select {
	case <-done:
		finished = true
	case <-bctx.Done():
		select {
		case <-done:
			finished = true
		default:
		}
	}

	mu.Lock()
	sealed = true
	completed := make([]*models.DocumentResult, len(slots))
	copy(completed, slots)
	mu.Unlock()

	if !finished && ctx.Err() != nil {
		return nil, fmt.Errorf("batch %d interrupted: %w", batch.Index, ctx.Err())
	}

	results := models.NewResultSet()
	completedNames := make(map[string]bool, len(completed))
	for i, ref := range batch.References {
		if completed[i] != nil {
			completedNames[DocumentName(ref)] = true
		}
	}

	timeoutMsg := "Processing timeout after " + formatSeconds(batch.Timeout) + "s"
	timedOut := 0
	for i, ref := range batch.References {
		name := DocumentName(ref)
		if completed[i] != nil {
			results.Set(name, *completed[i])
			continue
		}
		timedOut++
		if !completedNames[name] {
			results.Set(name, models.NewFailure(models.KindSchedulerTimeout, timeoutMsg))
		}
	}

	if timedOut > 0 {
		metrics.BatchTimeouts.Inc()
		metrics.TimedOutDocuments.Add(float64(timedOut))
		logCtx.Error("Batch timed out.", "timeout", batch.Timeout.String(), "timedOutDocuments", timedOut)
	}
	logCtx.Info("Completed batch.", "results", results.Len())
	return results, nil
}

// formatSeconds renders a duration as seconds without a trailing ".0".
func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
