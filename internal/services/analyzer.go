package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/gcp"
	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/metrics"
	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/models"
	"github.com/google/uuid"
)

// ErrMissingPathsURL rejects analyze requests without a manifest URL.
var ErrMissingPathsURL = errors.New("Missing 'paths_url'")

// AnalyzerFunction holds the dependencies of the batch processing orchestrator.
type AnalyzerFunction struct {
	config        AnalyzerConfig
	manifests     *ManifestFetcher
	splitter      *BatchSplitter
	storageClient *storage.Client
	archiver      *ResultArchiver
	recorder      *RunRecorder
	handoff       *WorkflowHandoff
	logger        *slog.Logger
}

// NewAnalyzer creates an AnalyzerFunction from the environment. The Vertex AI
// client is built here once and shared by every run.
func NewAnalyzer(ctx context.Context) (*AnalyzerFunction, error) {
	config, err := LoadAnalyzerConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.VertexAIRegion, config.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	httpClient := &http.Client{Timeout: config.RequestTimeout}
	pipeline := NewPipeline(
		NewContentFetcher(httpClient, storageClient),
		NewDocumentRasterizer(config.DPI, config.MaxPages),
		NewVertexExtractor(vertexClient, config.ExtractionTimeout),
		slog.Default(),
	)

	f := NewAnalyzerWith(*config, NewManifestFetcher(httpClient), pipeline, slog.Default())
	f.storageClient = storageClient

	if config.ResultsBucket != "" {
		f.archiver = NewResultArchiver(storageClient, config.ResultsBucket)
	}
	if config.CollectionName != "" {
		firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
		if err != nil {
			return nil, err
		}
		f.recorder = NewRunRecorder(firestoreClient, config.CollectionName)
	}
	if config.WorkflowID != "" {
		executionsClient, err := gcp.NewExecutionsClient(ctx)
		if err != nil {
			return nil, err
		}
		f.handoff = NewWorkflowHandoff(executionsClient, config.ProjectID, config.WorkflowLocation, config.WorkflowID)
	}

	slog.Info("Document analyzer initialized.",
		"model", config.Model,
		"batchSize", config.BatchSize,
		"maxWorkers", config.MaxWorkers,
		"maxRetries", config.MaxRetries,
		"retryDelay", config.RetryDelay.String(),
	)
	return f, nil
}

// NewAnalyzerWith wires the orchestrator around an explicit document
// processor. It has no storage client and no run sinks.
func NewAnalyzerWith(config AnalyzerConfig, manifests *ManifestFetcher, processor DocumentProcessor, logger *slog.Logger) *AnalyzerFunction {
	if logger == nil {
		logger = slog.Default()
	}
	policy := config.RetryPolicy()
	controller := NewRetryController(processor, policy, logger)
	scheduler := NewScheduler(controller, config.MaxWorkers, logger)

	return &AnalyzerFunction{
		config:    config,
		manifests: manifests,
		splitter:  NewBatchSplitter(scheduler, config.BatchSize, policy.DocumentBudget(), logger),
		logger:    logger,
	}
}

// Process handles one analyze request. Manifest failures and oversized
// manifests abort before any document is processed; everything else is
// reported inside the response.
func (f *AnalyzerFunction) Process(ctx context.Context, req *models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	if req == nil || strings.TrimSpace(req.PathsURL) == "" {
		return nil, ErrMissingPathsURL
	}

	start := time.Now()
	refs, err := f.manifests.FetchDocumentLinks(ctx, req.PathsURL)
	if err != nil {
		f.logger.Error("Failed to fetch manifest.", "pathsUrl", req.PathsURL, "error", err)
		return nil, err
	}
	if err := f.checkDocumentCount(len(refs)); err != nil {
		f.logger.Warn("Rejecting manifest.", "pathsUrl", req.PathsURL, "error", err)
		return nil, err
	}

	result := f.Run(ctx, req.PathsURL, refs)
	return &models.AnalyzeResponse{
		OK:                    true,
		RunID:                 result.RunID,
		Result:                result.Results,
		ProcessingTimeSeconds: math.Round(time.Since(start).Seconds()*100) / 100,
		DocumentCount:         result.Summary.Total,
		SuccessfulDocuments:   result.Summary.Successful,
		FailedDocuments:       result.Summary.Failed,
		RetryFailures:         result.Summary.RetryFailures,
		BatchSize:             f.config.BatchSize,
		RetryConfig: models.RetryConfig{
			MaxRetries: f.config.MaxRetries,
			RetryDelay: int(f.config.RetryDelay / time.Second),
		},
	}, nil
}

func (f *AnalyzerFunction) checkDocumentCount(n int) error {
	if n > f.config.MaxDocuments {
		return &TooManyDocumentsError{Count: n, Max: f.config.MaxDocuments}
	}
	return nil
}

// Run processes refs batch by batch and returns the merged, sorted result.
// Sink failures are logged and never fail the run.
func (f *AnalyzerFunction) Run(ctx context.Context, source string, refs []string) *models.OrchestrationResult {
	runID := uuid.NewString()
	logCtx := f.logger.With("runId", runID)
	logCtx.Info("Starting run.", "source", source, "documentCount", len(refs))
	start := time.Now()

	if err := f.recorder.Start(ctx, models.RunRecord{
		RunID:         runID,
		Source:        source,
		Status:        models.RunStatusRunning,
		DocumentCount: len(refs),
		CreatedAt:     start,
	}); err != nil {
		logCtx.Error("Failed to record run start.", "error", err)
	}

	result := Aggregate(f.splitter.Process(ctx, refs))
	result.RunID = runID
	result.Duration = time.Since(start)

	metrics.RunDuration.Observe(result.Duration.Seconds())
	metrics.Documents.WithLabelValues("success").Add(float64(result.Summary.Successful))
	metrics.Documents.WithLabelValues("failed").Add(float64(result.Summary.Failed))

	f.finishRun(ctx, logCtx, result)

	logCtx.Info("Run complete.",
		"total", result.Summary.Total,
		"successful", result.Summary.Successful,
		"failed", result.Summary.Failed,
		"retryFailures", result.Summary.RetryFailures,
		"duration", result.Duration.String(),
	)
	return result
}

func (f *AnalyzerFunction) finishRun(ctx context.Context, logCtx *slog.Logger, result *models.OrchestrationResult) {
	uri, err := f.archiver.Archive(ctx, result)
	if err != nil {
		logCtx.Error("Failed to archive run result.", "error", err)
		if ferr := f.recorder.Fail(ctx, result.RunID, err.Error()); ferr != nil {
			logCtx.Error("CRITICAL: Failed to update run status to FAILED.", "updateError", ferr)
		}
		return
	}
	if err := f.recorder.Complete(ctx, result.RunID, result.Summary, uri); err != nil {
		logCtx.Error("Failed to record run completion.", "error", err)
	}
	if uri == "" {
		return
	}
	if err := f.handoff.Trigger(ctx, models.RunHandoff{
		RunID:         result.RunID,
		ResultsGCSUri: uri,
		DocumentCount: result.Summary.Total,
	}); err != nil {
		logCtx.Error("Failed to hand off run.", "error", err)
	}
}

// ProcessManifestObject runs a manifest uploaded to GCS. Objects that are not
// JSON, cannot be parsed, or list too many documents are skipped without error.
func (f *AnalyzerFunction) ProcessManifestObject(ctx context.Context, e models.GCSEvent) error {
	logCtx := f.logger.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if !strings.HasSuffix(strings.ToLower(e.Name), ".json") {
		logCtx.Info("Object is not a manifest. Skipping.")
		return nil
	}
	if f.storageClient == nil {
		return fmt.Errorf("no storage client configured")
	}

	data, err := gcp.ReadGCSObject(ctx, f.storageClient, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to read manifest object", "error", err)
		return err
	}

	refs, err := ParseManifest(bytes.NewReader(data))
	if err != nil {
		logCtx.Error("Manifest object is malformed. Skipping.", "error", err)
		return nil
	}
	if err := f.checkDocumentCount(len(refs)); err != nil {
		logCtx.Error("Rejecting manifest object.", "error", err)
		return nil
	}

	f.Run(ctx, fmt.Sprintf("gs://%s/%s", e.Bucket, e.Name), refs)
	return nil
}
