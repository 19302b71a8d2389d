package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/models"
)

func manifestServer(t *testing.T, manifests map[string][]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refs, ok := manifests[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		docs := []map[string]string{}
		for _, ref := range refs {
			docs = append(docs, map[string]string{"document_url": ref})
		}
		json.NewEncoder(w).Encode(map[string]any{"documents": docs})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testAnalyzer(srv *httptest.Server, proc DocumentProcessor) *AnalyzerFunction {
	cfg := AnalyzerConfig{
		BatchSize:       2,
		MaxWorkers:      2,
		MaxRetries:      1,
		RetryDelay:      time.Millisecond,
		DocumentTimeout: time.Second,
		MaxDocuments:    50,
	}
	f := NewAnalyzerWith(cfg, NewManifestFetcher(srv.Client()), proc, discardLogger())
	f.splitter.pause = 0
	return f
}

func TestAnalyzerEmptyManifest(t *testing.T) {
	srv := manifestServer(t, map[string][]string{"/empty": nil})
	proc := newFakeProcessor(func(context.Context, string, int) (models.DocumentResult, error) {
		return models.Success(nil), nil
	})
	f := testAnalyzer(srv, proc)

	resp, err := f.Process(context.Background(), &models.AnalyzeRequest{PathsURL: srv.URL + "/empty"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !resp.OK || resp.DocumentCount != 0 || resp.SuccessfulDocuments != 0 || resp.FailedDocuments != 0 || resp.RetryFailures != 0 {
		t.Errorf("resp = %+v", resp)
	}
	body, _ := json.Marshal(resp)
	if !strings.Contains(string(body), `"result":{}`) {
		t.Errorf("body = %s", body)
	}
	if proc.TotalCalls() != 0 {
		t.Errorf("calls = %d, want 0", proc.TotalCalls())
	}
}

func TestAnalyzerSortsAcrossBatches(t *testing.T) {
	refs := []string{"https://docs/a.pdf", "https://docs/b.jpg", "https://docs/c.png"}
	srv := manifestServer(t, map[string][]string{"/m": refs})
	dates := map[string]string{
		"https://docs/a.pdf": "01.02.2021",
		"https://docs/b.jpg": "2023-06-15",
	}
	proc := newFakeProcessor(func(_ context.Context, ref string, _ int) (models.DocumentResult, error) {
		if d, ok := dates[ref]; ok {
			return datedFields(d), nil
		}
		return models.Success(models.Fields{"titlu_document": "fara data"}), nil
	})
	f := testAnalyzer(srv, proc)

	resp, err := f.Process(context.Background(), &models.AnalyzeRequest{PathsURL: srv.URL + "/m"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	want := []string{"b.jpg", "a.pdf", "c.png"}
	if !reflect.DeepEqual(resp.Result.Names(), want) {
		t.Errorf("order = %v, want %v", resp.Result.Names(), want)
	}
	if resp.DocumentCount != 3 || resp.SuccessfulDocuments != 3 || resp.FailedDocuments != 0 {
		t.Errorf("counts = %d/%d/%d", resp.DocumentCount, resp.SuccessfulDocuments, resp.FailedDocuments)
	}
	if resp.BatchSize != 2 || resp.RetryConfig.MaxRetries != 1 {
		t.Errorf("batch/retry echo = %d/%+v", resp.BatchSize, resp.RetryConfig)
	}
	if resp.RunID == "" {
		t.Error("RunID is empty")
	}
}

func TestAnalyzerCountsRetryFailures(t *testing.T) {
	refs := []string{"https://docs/ok.pdf", "https://docs/broken.pdf", "https://docs/quota.pdf"}
	srv := manifestServer(t, map[string][]string{"/m": refs})
	proc := newFakeProcessor(func(_ context.Context, ref string, _ int) (models.DocumentResult, error) {
		switch ref {
		case "https://docs/broken.pdf":
			return models.DocumentResult{}, errors.New("corrupt")
		case "https://docs/quota.pdf":
			return models.NewFailure(models.KindExtractionAPI, "quota exceeded"), nil
		}
		return models.Success(nil), nil
	})
	f := testAnalyzer(srv, proc)

	resp, err := f.Process(context.Background(), &models.AnalyzeRequest{PathsURL: srv.URL + "/m"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if resp.SuccessfulDocuments != 1 || resp.FailedDocuments != 2 || resp.RetryFailures != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/2/1", resp.SuccessfulDocuments, resp.FailedDocuments, resp.RetryFailures)
	}
	if n := proc.Calls("https://docs/broken.pdf"); n != 2 {
		t.Errorf("broken.pdf calls = %d, want 2", n)
	}
	r, _ := resp.Result.Get("broken.pdf")
	body, _ := json.Marshal(r)
	if string(body) != `{"error":"Processing error: corrupt","attempts":2,"final_failure":true}` {
		t.Errorf("broken.pdf = %s", body)
	}
}

func TestAnalyzerRejectsBeforeProcessing(t *testing.T) {
	many := make([]string, 51)
	for i := range many {
		many[i] = fmt.Sprintf("https://docs/%d.pdf", i)
	}
	srv := manifestServer(t, map[string][]string{"/many": many})
	proc := newFakeProcessor(func(context.Context, string, int) (models.DocumentResult, error) {
		return models.Success(nil), nil
	})
	f := testAnalyzer(srv, proc)

	_, err := f.Process(context.Background(), &models.AnalyzeRequest{PathsURL: srv.URL + "/many"})
	if !errors.Is(err, ErrTooManyDocuments) {
		t.Errorf("error = %v, want ErrTooManyDocuments", err)
	}

	_, err = f.Process(context.Background(), &models.AnalyzeRequest{PathsURL: srv.URL + "/gone"})
	var manifestErr *ManifestError
	if !errors.As(err, &manifestErr) {
		t.Errorf("error = %v, want *ManifestError", err)
	}

	if _, err := f.Process(context.Background(), &models.AnalyzeRequest{}); !errors.Is(err, ErrMissingPathsURL) {
		t.Errorf("error = %v, want ErrMissingPathsURL", err)
	}
	if proc.TotalCalls() != 0 {
		t.Errorf("calls = %d, want 0", proc.TotalCalls())
	}
}

func TestProcessManifestObjectSkipsNonJSON(t *testing.T) {
	f := NewAnalyzerWith(AnalyzerConfig{BatchSize: 1, MaxWorkers: 1, DocumentTimeout: time.Second, MaxDocuments: 1}, nil, nil, discardLogger())
	if err := f.ProcessManifestObject(context.Background(), models.GCSEvent{Bucket: "b", Name: "uploads/scan.pdf"}); err != nil {
		t.Errorf("ProcessManifestObject() error = %v", err)
	}
	if err := f.ProcessManifestObject(context.Background(), models.GCSEvent{Bucket: "b", Name: "manifests/run.json"}); err == nil {
		t.Error("ProcessManifestObject() without storage client error = nil")
	}
}

func TestArchiveObjectName(t *testing.T) {
	if got := ArchiveObjectName("abc"); got != "runs/abc.json" {
		t.Errorf("ArchiveObjectName() = %q", got)
	}
}
