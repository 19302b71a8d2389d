package services

import (
	"fmt"
	"time"

	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/gcp"
)

// AnalyzerConfig holds all configuration for the document analyzer.
type AnalyzerConfig struct {
	ProjectID      string
	VertexAIRegion string
	Model          string

	DPI      int
	MaxPages int

	RequestTimeout    time.Duration
	ExtractionTimeout time.Duration
	DocumentTimeout   time.Duration

	MaxRetries int
	RetryDelay time.Duration

	BatchSize    int
	MaxWorkers   int
	MaxDocuments int

	// Optional sinks; empty disables them.
	ResultsBucket    string
	CollectionName   string
	WorkflowID       string
	WorkflowLocation string
}

// LoadAnalyzerConfig loads and validates the analyzer's environment variables.
func LoadAnalyzerConfig() (*AnalyzerConfig, error) {
	cfg := &AnalyzerConfig{
		ProjectID:        gcp.GetEnv("PROJECT_ID", ""),
		VertexAIRegion:   gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		Model:            gcp.GetEnv("MODEL", ""),
		ResultsBucket:    gcp.GetEnv("RESULTS_BUCKET", ""),
		CollectionName:   gcp.GetEnv("FIRESTORE_COLLECTION", ""),
		WorkflowID:       gcp.GetEnv("WORKFLOW_ID", ""),
		WorkflowLocation: gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("MODEL environment variable must be set")
	}

	var err error
	ints := []struct {
		key      string
		fallback int
		dst      *int
	}{
		{"DPI", 200, &cfg.DPI},
		{"MAX_PAGES", 10, &cfg.MaxPages},
		{"MAX_RETRIES", 2, &cfg.MaxRetries},
		{"BATCH_SIZE", 5, &cfg.BatchSize},
		{"MAX_WORKERS", 3, &cfg.MaxWorkers},
		{"MAX_DOCUMENTS", 50, &cfg.MaxDocuments},
	}
	for _, v := range ints {
		if *v.dst, err = gcp.GetEnvInt(v.key, v.fallback); err != nil {
			return nil, err
		}
	}

	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"REQUEST_TIMEOUT", 30 * time.Second, &cfg.RequestTimeout},
		{"EXTRACTION_TIMEOUT", 120 * time.Second, &cfg.ExtractionTimeout},
		{"DOCUMENT_TIMEOUT", 180 * time.Second, &cfg.DocumentTimeout},
		{"RETRY_DELAY", 5 * time.Second, &cfg.RetryDelay},
	}
	for _, v := range durations {
		if *v.dst, err = gcp.GetEnvSeconds(v.key, v.fallback); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the orchestrator cannot run with.
func (c *AnalyzerConfig) Validate() error {
	switch {
	case c.BatchSize <= 0:
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize)
	case c.MaxWorkers <= 0:
		return fmt.Errorf("MAX_WORKERS must be positive, got %d", c.MaxWorkers)
	case c.MaxRetries < 0:
		return fmt.Errorf("MAX_RETRIES cannot be negative, got %d", c.MaxRetries)
	case c.RetryDelay < 0:
		return fmt.Errorf("RETRY_DELAY cannot be negative")
	case c.DocumentTimeout <= 0:
		return fmt.Errorf("DOCUMENT_TIMEOUT must be positive")
	case c.MaxPages <= 0:
		return fmt.Errorf("MAX_PAGES must be positive, got %d", c.MaxPages)
	case c.DPI <= 0:
		return fmt.Errorf("DPI must be positive, got %d", c.DPI)
	case c.MaxDocuments <= 0:
		return fmt.Errorf("MAX_DOCUMENTS must be positive, got %d", c.MaxDocuments)
	}
	return nil
}

// RetryPolicy derives the retry settings shared by the retry controller and
// the scheduler's batch budget.
func (c *AnalyzerConfig) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     c.MaxRetries,
		Delay:          c.RetryDelay,
		AttemptTimeout: c.DocumentTimeout,
	}
}
