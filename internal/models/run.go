package models

import "time"

// Run statuses stored in Firestore.
const (
	RunStatusRunning   = "RUNNING"
	RunStatusCompleted = "COMPLETED"
	RunStatusFailed    = "FAILED"
)

// RunRecord tracks one orchestration run in Firestore.
type RunRecord struct {
	RunID               string    `firestore:"runId,omitempty"`
	Source              string    `firestore:"source,omitempty"`
	Status              string    `firestore:"status,omitempty"`
	ErrorDetails        string    `firestore:"errorDetails,omitempty"`
	DocumentCount       int       `firestore:"documentCount"`
	SuccessfulDocuments int       `firestore:"successfulDocuments"`
	FailedDocuments     int       `firestore:"failedDocuments"`
	RetryFailures       int       `firestore:"retryFailures"`
	ResultsGCSUri       string    `firestore:"resultsGcsUri,omitempty"`
	CreatedAt           time.Time `firestore:"createdAt,omitempty"`
	CompletedAt         time.Time `firestore:"completedAt,omitempty"`
}
