package models

import (
	"encoding/json"
	"time"
)

// FailureKind tags why a document did not produce extracted fields.
type FailureKind string

const (
	KindNetworkTimeout   FailureKind = "NetworkTimeout"
	KindNetworkError     FailureKind = "NetworkError"
	KindProcessingError  FailureKind = "ProcessingError"
	KindExtractionAPI    FailureKind = "ExtractionAPIError"
	KindExtractionDecode FailureKind = "ExtractionDecodeError"
	KindSchedulerTimeout FailureKind = "SchedulerTimeout"
	KindTaskPanic        FailureKind = "TaskPanic"
	KindBatchFailure     FailureKind = "BatchFailure"
)

// Date fields consulted, in order, when ordering results.
const (
	FieldDocumentDate = "data_introducere_document"
	FieldResultDate   = "data_rezultat"
)

// FieldError marks an extraction answer in which the model itself reported a
// failure. Such fields are kept as returned but do not count as a success.
const FieldError = "error"

// Fields is the structured data returned by the extraction model for one document.
type Fields map[string]any

// Failure describes a document that ended without fields.
// Attempts and Final are only set for retry exhaustion.
type Failure struct {
	Kind        FailureKind
	Message     string
	Attempts    int
	Final       bool
	RawResponse string
}

// DocumentResult is either a Success carrying Fields or a Failure.
type DocumentResult struct {
	Fields  Fields
	Failure *Failure
}

func Success(fields Fields) DocumentResult {
	if fields == nil {
		fields = Fields{}
	}
	return DocumentResult{Fields: fields}
}

func NewFailure(kind FailureKind, message string) DocumentResult {
	return DocumentResult{Failure: &Failure{Kind: kind, Message: message}}
}

// TerminalFailure is the record left behind once every retry has been spent.
// kind is the classification of the last failed attempt.
func TerminalFailure(kind FailureKind, message string, attempts int) DocumentResult {
	return DocumentResult{Failure: &Failure{
		Kind:     kind,
		Message:  message,
		Attempts: attempts,
		Final:    true,
	}}
}

// IsSuccess reports whether the result carries usable fields: no failure and
// no error key in the extracted fields.
func (r DocumentResult) IsSuccess() bool {
	if r.Failure != nil {
		return false
	}
	_, reported := r.Fields[FieldError]
	return !reported
}

func (r DocumentResult) IsFinalFailure() bool { return r.Failure != nil && r.Failure.Final }

// DateValue returns the document date string used for ordering: the document
// introduction date, falling back to the result date. Non-string or empty
// values count as missing, as do results that are not a success.
func (r DocumentResult) DateValue() string {
	if !r.IsSuccess() {
		return ""
	}
	if s, ok := r.Fields[FieldDocumentDate].(string); ok && s != "" {
		return s
	}
	if s, ok := r.Fields[FieldResultDate].(string); ok {
		return s
	}
	return ""
}

// MarshalJSON keeps the wire shapes clients already consume: the raw fields on
// success, and error/api_error/json_error objects on failure.
func (r DocumentResult) MarshalJSON() ([]byte, error) {
	if r.Failure == nil {
		if r.Fields == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(map[string]any(r.Fields))
	}

	f := r.Failure
	switch f.Kind {
	case KindExtractionAPI:
		return json.Marshal(struct {
			APIError string `json:"api_error"`
		}{f.Message})
	case KindExtractionDecode:
		return json.Marshal(struct {
			RawResponse string `json:"raw_response"`
			JSONError   string `json:"json_error"`
		}{f.RawResponse, f.Message})
	}

	if f.Final {
		return json.Marshal(struct {
			Error        string `json:"error"`
			Attempts     int    `json:"attempts"`
			FinalFailure bool   `json:"final_failure"`
		}{f.Message, f.Attempts, true})
	}
	return json.Marshal(struct {
		Error string `json:"error"`
	}{f.Message})
}

// Summary holds the counters reported alongside a run's results.
type Summary struct {
	Total         int `json:"total"`
	Successful    int `json:"successful"`
	Failed        int `json:"failed"`
	RetryFailures int `json:"retry_failures"`
}

// OrchestrationResult is the immutable outcome of one run.
type OrchestrationResult struct {
	RunID    string        `json:"run_id"`
	Results  *ResultSet    `json:"result"`
	Summary  Summary       `json:"summary"`
	Duration time.Duration `json:"-"`
}
