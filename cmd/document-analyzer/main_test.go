package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/models"
	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/services"
)

type stubAnalyzer struct {
	resp *models.AnalyzeResponse
	err  error
	got  *models.AnalyzeRequest
}

func (s *stubAnalyzer) Process(_ context.Context, req *models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	s.got = req
	return s.resp, s.err
}

func useAnalyzer(t *testing.T, a analyzer, err error) {
	t.Helper()
	prev := newAnalyzer
	t.Cleanup(func() {
		newAnalyzer = prev
		once = sync.Once{}
		analyzerInstance, initErr = nil, nil
	})
	once = sync.Once{}
	analyzerInstance, initErr = nil, nil
	newAnalyzer = func(context.Context) (analyzer, error) { return a, err }
}

func post(body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handleAnalyze(rec, httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body)))
	return rec
}

func TestHandleAnalyzeStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing paths_url", services.ErrMissingPathsURL, http.StatusBadRequest},
		{"too many", &services.TooManyDocumentsError{Count: 51, Max: 50}, http.StatusBadRequest},
		{"manifest", &services.ManifestError{URL: "http://x", Err: errors.New("refused")}, http.StatusBadRequest},
		{"other", errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useAnalyzer(t, &stubAnalyzer{err: tt.err}, nil)

			rec := post(`{"paths_url":"http://x/m.json"}`)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			var body models.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.OK || body.Error != tt.err.Error() {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestHandleAnalyzeSuccess(t *testing.T) {
	set := models.NewResultSet()
	set.Set("a.pdf", models.Success(models.Fields{"medic": "Pop"}))
	stub := &stubAnalyzer{resp: &models.AnalyzeResponse{OK: true, RunID: "r1", Result: set, DocumentCount: 1, SuccessfulDocuments: 1}}
	useAnalyzer(t, stub, nil)

	rec := post(`{"paths_url":"http://x/m.json"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if stub.got.PathsURL != "http://x/m.json" {
		t.Errorf("PathsURL = %q", stub.got.PathsURL)
	}
	if !strings.Contains(rec.Body.String(), `"result":{"a.pdf":{"medic":"Pop"}}`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHandleAnalyzeMalformedBodyIsMissingURL(t *testing.T) {
	stub := &stubAnalyzer{err: services.ErrMissingPathsURL}
	useAnalyzer(t, stub, nil)

	rec := post(`not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if stub.got == nil || stub.got.PathsURL != "" {
		t.Errorf("request = %+v", stub.got)
	}
}

func TestHandleAnalyzeInitAndMethodErrors(t *testing.T) {
	useAnalyzer(t, nil, errors.New("no credentials"))

	rec := httptest.NewRecorder()
	handleAnalyze(rec, httptest.NewRequest(http.MethodGet, "/analyze", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rec.Code)
	}

	if rec := post(`{}`); rec.Code != http.StatusInternalServerError {
		t.Errorf("init failure status = %d, want 500", rec.Code)
	}
}
