package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/metrics"
	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/models"
)

// InterBatchPause separates consecutive batches to respect the extraction
// service's rate limits.
const InterBatchPause = 2 * time.Second

// BatchRunner runs one batch. Scheduler implements it.
type BatchRunner interface {
	Run(ctx context.Context, batch Batch) (*models.ResultSet, error)
}

// SplitBatches partitions refs into consecutive batches of at most size
// references. The last batch may be shorter.
func SplitBatches(refs []string, size int, documentBudget time.Duration) []Batch {
	if size <= 0 || len(refs) == 0 {
		return nil
	}
	batches := make([]Batch, 0, (len(refs)+size-1)/size)
	for start := 0; start < len(refs); start += size {
		end := min(start+size, len(refs))
		batches = append(batches, NewBatch(len(batches)+1, refs[start:end], documentBudget))
	}
	return batches
}

// BatchSplitter runs batches strictly one after another with a fixed pause
// after each batch that completed, except the last. A failing batch never
// stops the run and is followed directly by the next one.
type BatchSplitter struct {
	runner         BatchRunner
	batchSize      int
	documentBudget time.Duration
	pause          time.Duration
	logger         *slog.Logger
}

func NewBatchSplitter(runner BatchRunner, batchSize int, documentBudget time.Duration, logger *slog.Logger) *BatchSplitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchSplitter{
		runner:         runner,
		batchSize:      batchSize,
		documentBudget: documentBudget,
		pause:          InterBatchPause,
		logger:         logger,
	}
}

// Process returns one result set per batch, in batch order.
func (s *BatchSplitter) Process(ctx context.Context, refs []string) []*models.ResultSet {
	batches := SplitBatches(refs, s.batchSize, s.documentBudget)
	s.logger.Info("Processing documents in batches.", "documentCount", len(refs), "batchCount", len(batches), "batchSize", s.batchSize)

	outputs := make([]*models.ResultSet, 0, len(batches))
	for i, batch := range batches {
		results, err := s.runBatch(ctx, batch)
		if err != nil {
			metrics.BatchFailures.Inc()
			s.logger.Error("Batch processing failed.", "batch", batch.Index, "error", err)
			results = models.NewResultSet()
			for _, ref := range batch.References {
				results.Set(DocumentName(ref), models.NewFailure(models.KindBatchFailure, "Batch processing failed: "+err.Error()))
			}
		}
		outputs = append(outputs, results)

		if err == nil && i < len(batches)-1 && s.pause > 0 {
			s.logger.Info("Waiting before next batch.", "pause", s.pause.String())
			select {
			case <-time.After(s.pause):
			case <-ctx.Done():
			}
		}
	}
	return outputs
}

// runBatch turns a panic escaping the runner into an error.
func (s *BatchSplitter) runBatch(ctx context.Context, batch Batch) (results *models.ResultSet, err error) {
	defer func() {
		if p := recover(); p != nil {
			results, err = nil, fmt.Errorf("%v", p)
		}
	}()
	results, err = s.runner.Run(ctx, batch)
	if err == nil && results == nil {
		results = models.NewResultSet()
	}
	return results, err
}
