package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func TestParseManifestSkipsEntriesWithoutURL(t *testing.T) {
	body := `{"documents":[{"document_url":"https://x/a.pdf"},{"name":"no url"},{"document_url":null},{"document_url":"gs://b/c.png"}]}`
	got, err := ParseManifest(strings.NewReader(body))
	if err != nil {
		t.Fatalf("ParseManifest() error = %v", err)
	}
	want := []string{"https://x/a.pdf", "gs://b/c.png"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseManifest() = %v, want %v", got, want)
	}
}

func TestParseManifestSkipsNonStringURLs(t *testing.T) {
	body := `{"documents":[{"document_url":42},{"document_url":"https://x/a.pdf"},{"document_url":{"href":"b.pdf"}},{"document_url":["c.pdf"]},{"document_url":"https://x/d.png"}]}`
	got, err := ParseManifest(strings.NewReader(body))
	if err != nil {
		t.Fatalf("ParseManifest() error = %v", err)
	}
	want := []string{"https://x/a.pdf", "https://x/d.png"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseManifest() = %v, want %v", got, want)
	}
}

func TestParseManifestEmpty(t *testing.T) {
	for _, body := range []string{`{"documents":[]}`, `{}`} {
		got, err := ParseManifest(strings.NewReader(body))
		if err != nil {
			t.Fatalf("ParseManifest(%s) error = %v", body, err)
		}
		if len(got) != 0 {
			t.Errorf("ParseManifest(%s) = %v, want empty", body, got)
		}
	}
}

func TestFetchDocumentLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(`{"documents":[{"document_url":"https://x/a.pdf"},{"document_url":"https://x/b.jpg"}]}`))
		case "/broken":
			w.Write([]byte(`{"documents":`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	m := NewManifestFetcher(srv.Client())

	links, err := m.FetchDocumentLinks(context.Background(), srv.URL+"/ok")
	if err != nil {
		t.Fatalf("FetchDocumentLinks() error = %v", err)
	}
	if !reflect.DeepEqual(links, []string{"https://x/a.pdf", "https://x/b.jpg"}) {
		t.Errorf("links = %v", links)
	}

	for _, path := range []string{"/missing", "/broken"} {
		_, err := m.FetchDocumentLinks(context.Background(), srv.URL+path)
		var manifestErr *ManifestError
		if !errors.As(err, &manifestErr) {
			t.Errorf("%s: error = %v, want *ManifestError", path, err)
			continue
		}
		if !strings.HasPrefix(err.Error(), "Failed to fetch document links: ") {
			t.Errorf("%s: message = %q", path, err.Error())
		}
	}

	_, err = m.FetchDocumentLinks(context.Background(), srv.URL+"/missing")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("error = %v, want wrapped 404", err)
	}
}

func TestTooManyDocumentsError(t *testing.T) {
	err := error(&TooManyDocumentsError{Count: 51, Max: 50})
	if !errors.Is(err, ErrTooManyDocuments) {
		t.Error("errors.Is(ErrTooManyDocuments) = false")
	}
	if err.Error() != "Too many documents: 51 (maximum is 50)" {
		t.Errorf("Error() = %q", err.Error())
	}
}
