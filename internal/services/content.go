package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/AlexandruAndrita/webhippocrates-document-ocr-webapp/internal/gcp"
)

// DocumentType is the content class decided from a reference's extension.
type DocumentType string

const (
	DocumentPDF     DocumentType = "pdf"
	DocumentImage   DocumentType = "image"
	DocumentUnknown DocumentType = "unknown"
)

// ClassifyDocument decides the document type by case-insensitive extension.
// For URLs only the path is considered, so query strings do not matter.
func ClassifyDocument(ref string) DocumentType {
	p := ref
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && u.Host != "" {
		p = u.Path
	}
	p = strings.ToLower(p)

	switch {
	case strings.HasSuffix(p, ".pdf"):
		return DocumentPDF
	case strings.HasSuffix(p, ".png"), strings.HasSuffix(p, ".jpg"), strings.HasSuffix(p, ".jpeg"):
		return DocumentImage
	default:
		return DocumentUnknown
	}
}

// DocumentName is the final path segment of a reference. It keys the results.
func DocumentName(ref string) string {
	trimmed := strings.TrimRight(ref, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// StatusError is a non-2xx HTTP response. It classifies as a network error.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s for %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// Fetcher returns the raw bytes behind a document reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// ContentFetcher resolves http(s) URLs, gs:// objects and local paths.
type ContentFetcher struct {
	httpClient    *http.Client
	storageClient *storage.Client
}

// NewContentFetcher builds a fetcher. storageClient may be nil, in which case
// gs:// references fail.
func NewContentFetcher(httpClient *http.Client, storageClient *storage.Client) *ContentFetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ContentFetcher{httpClient: httpClient, storageClient: storageClient}
}

func (f *ContentFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return f.download(ctx, ref)
	case strings.HasPrefix(ref, "gs://"):
		bucket, object, ok := gcp.ParseGCSUri(ref)
		if !ok {
			return nil, fmt.Errorf("invalid GCS reference %q", ref)
		}
		if f.storageClient == nil {
			return nil, fmt.Errorf("no storage client configured for %s", ref)
		}
		return gcp.ReadGCSObject(ctx, f.storageClient, bucket, object)
	default:
		data, err := os.ReadFile(ref)
		if err != nil {
			return nil, fmt.Errorf("failed to read local document: %w", err)
		}
		return data, nil
	}
}

func (f *ContentFetcher) download(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: ref, StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}
