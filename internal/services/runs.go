package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/gcp"
	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/models"
)

// The run sinks below are optional. A nil sink is a no-op, so the analyzer
// can call them unconditionally.

// ResultArchiver stores each run's final result as JSON in GCS.
type ResultArchiver struct {
	storageClient *storage.Client
	bucket        string
}

func NewResultArchiver(storageClient *storage.Client, bucket string) *ResultArchiver {
	return &ResultArchiver{storageClient: storageClient, bucket: bucket}
}

// ArchiveObjectName is where a run's results are written inside the bucket.
func ArchiveObjectName(runID string) string {
	return fmt.Sprintf("runs/%s.json", runID)
}

// Archive writes the result and returns its gs:// URI.
func (a *ResultArchiver) Archive(ctx context.Context, result *models.OrchestrationResult) (string, error) {
	if a == nil {
		return "", nil
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to marshal run result: %w", err)
	}
	objectName := ArchiveObjectName(result.RunID)
	if err := gcp.SaveToGCSAtomically(ctx, a.storageClient.Bucket(a.bucket), objectName, "application/json", payload); err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", a.bucket, objectName), nil
}

// RunRecorder keeps one Firestore document per run, keyed by run ID.
type RunRecorder struct {
	firestoreClient *firestore.Client
	collection      string
}

func NewRunRecorder(firestoreClient *firestore.Client, collection string) *RunRecorder {
	return &RunRecorder{firestoreClient: firestoreClient, collection: collection}
}

func (r *RunRecorder) Start(ctx context.Context, rec models.RunRecord) error {
	if r == nil {
		return nil
	}
	if _, err := r.firestoreClient.Collection(r.collection).Doc(rec.RunID).Set(ctx, rec); err != nil {
		return fmt.Errorf("failed to create run record: %w", err)
	}
	return nil
}

func (r *RunRecorder) Complete(ctx context.Context, runID string, summary models.Summary, resultsURI string) error {
	if r == nil {
		return nil
	}
	updates := []firestore.Update{
		{Path: "status", Value: models.RunStatusCompleted},
		{Path: "documentCount", Value: summary.Total},
		{Path: "successfulDocuments", Value: summary.Successful},
		{Path: "failedDocuments", Value: summary.Failed},
		{Path: "retryFailures", Value: summary.RetryFailures},
		{Path: "completedAt", Value: time.Now()},
	}
	if resultsURI != "" {
		updates = append(updates, firestore.Update{Path: "resultsGcsUri", Value: resultsURI})
	}
	if _, err := r.firestoreClient.Collection(r.collection).Doc(runID).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to update run record: %w", err)
	}
	return nil
}

func (r *RunRecorder) Fail(ctx context.Context, runID, details string) error {
	if r == nil {
		return nil
	}
	updates := []firestore.Update{
		{Path: "status", Value: models.RunStatusFailed},
		{Path: "errorDetails", Value: details},
		{Path: "completedAt", Value: time.Now()},
	}
	if _, err := r.firestoreClient.Collection(r.collection).Doc(runID).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to update run record: %w", err)
	}
	return nil
}

// WorkflowHandoff starts a workflow execution for every archived run.
type WorkflowHandoff struct {
	executionsClient *executions.Client
	parent           string
}

func NewWorkflowHandoff(executionsClient *executions.Client, projectID, location, workflowID string) *WorkflowHandoff {
	return &WorkflowHandoff{
		executionsClient: executionsClient,
		parent:           gcp.WorkflowParent(projectID, location, workflowID),
	}
}

func (h *WorkflowHandoff) Trigger(ctx context.Context, handoff models.RunHandoff) error {
	if h == nil {
		return nil
	}
	payloadBytes, err := json.Marshal(handoff)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: h.parent,
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	if _, err := h.executionsClient.CreateExecution(ctx, req); err != nil {
		return fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	return nil
}
