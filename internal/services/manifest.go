package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/models"
)

// ErrTooManyDocuments is matched by TooManyDocumentsError.
var ErrTooManyDocuments = errors.New("too many documents")

// ManifestError means the document list could not be fetched or decoded.
// It aborts the run before any processing starts.
type ManifestError struct {
	URL string
	Err error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("Failed to fetch document links: %v", e.Err)
}

func (e *ManifestError) Unwrap() error { return e.Err }

// TooManyDocumentsError aborts a run whose manifest lists more documents than allowed.
type TooManyDocumentsError struct {
	Count int
	Max   int
}

func (e *TooManyDocumentsError) Error() string {
	return fmt.Sprintf("Too many documents: %d (maximum is %d)", e.Count, e.Max)
}

func (e *TooManyDocumentsError) Is(target error) bool { return target == ErrTooManyDocuments }

// ManifestFetcher retrieves document references from a manifest URL.
type ManifestFetcher struct {
	httpClient *http.Client
}

func NewManifestFetcher(httpClient *http.Client) *ManifestFetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ManifestFetcher{httpClient: httpClient}
}

// FetchDocumentLinks GETs the manifest and returns its document URLs in order.
// Every failure is a *ManifestError.
func (m *ManifestFetcher) FetchDocumentLinks(ctx context.Context, pathsURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pathsURL, nil)
	if err != nil {
		return nil, &ManifestError{URL: pathsURL, Err: err}
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, &ManifestError{URL: pathsURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ManifestError{URL: pathsURL, Err: &StatusError{URL: pathsURL, StatusCode: resp.StatusCode}}
	}

	links, err := ParseManifest(resp.Body)
	if err != nil {
		return nil, &ManifestError{URL: pathsURL, Err: err}
	}
	return links, nil
}

// ParseManifest decodes a manifest body, skipping entries whose document_url
// is missing, null or not a string.
func ParseManifest(r io.Reader) ([]string, error) {
	var manifest models.Manifest
	if err := json.NewDecoder(r).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}

	links := make([]string, 0, len(manifest.Documents))
	for i, doc := range manifest.Documents {
		link, ok := documentURL(doc.DocumentURL)
		if !ok {
			if len(doc.DocumentURL) > 0 {
				slog.Warn("Skipping manifest entry without a string document_url.", "entry", i, "documentUrl", string(doc.DocumentURL))
			}
			continue
		}
		links = append(links, link)
	}
	return links, nil
}

func documentURL(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	var link string
	if err := json.Unmarshal(raw, &link); err != nil {
		return "", false
	}
	return link, true
}
