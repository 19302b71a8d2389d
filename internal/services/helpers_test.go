package services

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeProcessor records calls per reference and delegates to fn.
type fakeProcessor struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(ctx context.Context, ref string, call int) (models.DocumentResult, error)
}

func newFakeProcessor(fn func(ctx context.Context, ref string, call int) (models.DocumentResult, error)) *fakeProcessor {
	return &fakeProcessor{calls: make(map[string]int), fn: fn}
}

func (p *fakeProcessor) Process(ctx context.Context, ref string) (models.DocumentResult, error) {
	p.mu.Lock()
	p.calls[ref]++
	call := p.calls[ref]
	p.mu.Unlock()
	return p.fn(ctx, ref, call)
}

func (p *fakeProcessor) Calls(ref string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[ref]
}

func (p *fakeProcessor) TotalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, n := range p.calls {
		total += n
	}
	return total
}

// runnerFunc adapts a function to DocumentRunner.
type runnerFunc func(ctx context.Context, ref string) models.DocumentResult

func (f runnerFunc) Process(ctx context.Context, ref string) models.DocumentResult {
	return f(ctx, ref)
}

// batchRunnerFunc adapts a function to BatchRunner.
type batchRunnerFunc func(ctx context.Context, batch Batch) (*models.ResultSet, error)

func (f batchRunnerFunc) Run(ctx context.Context, batch Batch) (*models.ResultSet, error) {
	return f(ctx, batch)
}

func datedFields(date string) models.DocumentResult {
	return models.Success(models.Fields{models.FieldDocumentDate: date})
}
