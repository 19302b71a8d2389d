package services

import (
	"encoding/json"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/models"
)

func TestParseExtraction(t *testing.T) {
	got := parseExtraction(`{"data_introducere_document":"08.10.2022","medic":"Popescu"}`)
	if !got.IsSuccess() || got.Fields["medic"] != "Popescu" {
		t.Errorf("parseExtraction(object) = %+v", got)
	}

	got = parseExtraction(`{"error":"document unreadable"}`)
	if got.IsSuccess() || got.Fields[models.FieldError] != "document unreadable" {
		t.Errorf("parseExtraction(error object) = %+v, want reported failure", got)
	}
	if body, _ := json.Marshal(got); string(body) != `{"error":"document unreadable"}` {
		t.Errorf("reported failure marshals as %s", body)
	}

	got = parseExtraction("")
	if !got.IsSuccess() || len(got.Fields) != 0 {
		t.Errorf("parseExtraction(empty) = %+v", got)
	}

	for _, raw := range []string{"not json", `["a","b"]`, `{"a":`} {
		got := parseExtraction(raw)
		if got.Failure == nil || got.Failure.Kind != models.KindExtractionDecode {
			t.Errorf("parseExtraction(%q) = %+v, want decode failure", raw, got)
			continue
		}
		if got.Failure.RawResponse != raw || got.Failure.Message == "" {
			t.Errorf("parseExtraction(%q) failure = %+v", raw, got.Failure)
		}
	}
}

func TestExtractJSONContent(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text("```json\n{\"medic\":"),
				genai.Text("\"Ionescu\"}\n```"),
			}},
		}},
	}
	if got, want := extractJSONContent(resp), `{"medic":"Ionescu"}`; got != want {
		t.Errorf("extractJSONContent() = %q, want %q", got, want)
	}

	if got := extractJSONContent(nil); got != "" {
		t.Errorf("extractJSONContent(nil) = %q", got)
	}
	if got := extractJSONContent(&genai.GenerateContentResponse{}); got != "" {
		t.Errorf("extractJSONContent(no candidates) = %q", got)
	}
}
