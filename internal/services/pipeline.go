package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/models"
)

// DocumentProcessor runs one extraction attempt for a reference. A returned
// error is a failed attempt; extraction failures come back inside the result.
type DocumentProcessor interface {
	Process(ctx context.Context, ref string) (models.DocumentResult, error)
}

// Pipeline is the single-document pipeline: classify, fetch, rasterize and
// extract exactly once.
type Pipeline struct {
	fetcher    Fetcher
	rasterizer Rasterizer
	extractor  Extractor
	logger     *slog.Logger
}

func NewPipeline(fetcher Fetcher, rasterizer Rasterizer, extractor Extractor, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{fetcher: fetcher, rasterizer: rasterizer, extractor: extractor, logger: logger}
}

func (p *Pipeline) Process(ctx context.Context, ref string) (models.DocumentResult, error) {
	logCtx := p.logger.With("document", DocumentName(ref))

	docType := ClassifyDocument(ref)
	if docType == DocumentUnknown {
		return models.DocumentResult{}, fmt.Errorf("%w: %s", ErrUnsupportedDocument, ref)
	}
	logCtx.Info("Fetching document.", "type", docType)

	content, err := p.fetcher.Fetch(ctx, ref)
	if err != nil {
		return models.DocumentResult{}, err
	}

	pages, err := p.rasterizer.Rasterize(ctx, docType, content)
	if err != nil {
		return models.DocumentResult{}, err
	}
	if len(pages) == 0 {
		return models.DocumentResult{}, ErrNoPages
	}

	logCtx.Info("Calling extraction model.", "pageCount", len(pages))
	return p.extractor.Extract(ctx, pages), nil
}
