package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/gcp"
	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/models"
)

// Extractor is the extraction operation. Its failures are part of the returned
// result rather than an error: the orchestrator passes them through untouched.
type Extractor interface {
	Extract(ctx context.Context, pages []Page) models.DocumentResult
}

// VertexExtractor calls the pre-configured Gemini extraction model.
type VertexExtractor struct {
	model   *genai.GenerativeModel
	timeout time.Duration
}

func NewVertexExtractor(client *gcp.VertexClient, timeout time.Duration) *VertexExtractor {
	return &VertexExtractor{model: client.ExtractionModel, timeout: timeout}
}

func (e *VertexExtractor) Extract(ctx context.Context, pages []Page) models.DocumentResult {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	parts := make([]genai.Part, 0, len(pages)+1)
	parts = append(parts, genai.Text(gcp.ExtractionUserPrompt))
	for _, p := range pages {
		parts = append(parts, genai.Blob{MIMEType: p.MIMEType, Data: p.Data})
	}

	resp, err := e.model.GenerateContent(ctx, parts...)
	if err != nil {
		return models.NewFailure(models.KindExtractionAPI, err.Error())
	}
	return parseExtraction(extractJSONContent(resp))
}

// parseExtraction turns the model's text into fields. An empty answer is an
// empty object; anything that is not a JSON object keeps the raw text. An
// object with an error key is kept as is and counts as failed.
func parseExtraction(raw string) models.DocumentResult {
	if raw == "" {
		raw = "{}"
	}
	var fields models.Fields
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return models.DocumentResult{Failure: &models.Failure{
			Kind:        models.KindExtractionDecode,
			Message:     err.Error(),
			RawResponse: raw,
		}}
	}
	return models.Success(fields)
}

// extractJSONContent concatenates the text parts of the first candidate and
// strips markdown fences.
func extractJSONContent(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return trimFences(b.String())
}

func trimFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
