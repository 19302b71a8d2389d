package models

import "encoding/json"

// These structs define the JSON payloads exchanged with the analyze endpoint,
// the manifest service and the storage trigger.

// AnalyzeRequest is the input of the analyze endpoint.
type AnalyzeRequest struct {
	PathsURL string `json:"paths_url"`
}

// RetryConfig echoes the retry settings a run used.
type RetryConfig struct {
	MaxRetries int `json:"max_retries"`
	RetryDelay int `json:"retry_delay"`
}

// AnalyzeResponse is returned once a run completes, even if some documents failed.
type AnalyzeResponse struct {
	OK                    bool        `json:"ok"`
	RunID                 string      `json:"run_id"`
	Result                *ResultSet  `json:"result"`
	ProcessingTimeSeconds float64     `json:"processing_time_seconds"`
	DocumentCount         int         `json:"document_count"`
	SuccessfulDocuments   int         `json:"successful_documents"`
	FailedDocuments       int         `json:"failed_documents"`
	RetryFailures         int         `json:"retry_failures"`
	BatchSize             int         `json:"batch_size"`
	RetryConfig           RetryConfig `json:"retry_config"`
}

// ErrorResponse is the body of every non-200 analyze response.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Manifest is the document list served at paths_url.
type Manifest struct {
	Documents []ManifestEntry `json:"documents"`
}

// ManifestEntry is one manifest document. DocumentURL is kept raw so entries
// without a string URL can be skipped instead of failing the whole manifest.
type ManifestEntry struct {
	DocumentURL json.RawMessage `json:"document_url"`
}

// GCSEvent is the payload of a GCS object finalize event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// RunHandoff is the argument passed to the post-run workflow.
type RunHandoff struct {
	RunID         string `json:"runId"`
	ResultsGCSUri string `json:"resultsGcsUri"`
	DocumentCount int    `json:"documentCount"`
}
