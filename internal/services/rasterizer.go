package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/image/draw"
)

var (
	// ErrUnsupportedDocument is returned for references that are neither PDF nor image.
	ErrUnsupportedDocument = errors.New("unsupported file type")
	// ErrNoPages is returned when rasterization produces nothing to extract from.
	ErrNoPages = errors.New("PDF to image conversion failed or document has no pages")
)

// a4LongEdgeInches bounds image documents: their long edge is scaled to fit
// an A4 page at the configured DPI.
const a4LongEdgeInches = 11.69

// Page is one renderable payload handed to the extraction model.
type Page struct {
	MIMEType string
	Data     []byte
}

// Rasterizer turns document bytes into extraction pages.
type Rasterizer interface {
	Rasterize(ctx context.Context, docType DocumentType, content []byte) ([]Page, error)
}

// DocumentRasterizer splits PDFs into single-page documents with pdfcpu and
// normalizes images to PNG.
//
// PDF pages are not rendered to bitmaps: each page is handed to the model as
// its own application/pdf part, capped at MaxPages. DPI only bounds the size
// of image documents.
type DocumentRasterizer struct {
	DPI      int
	MaxPages int
}

func NewDocumentRasterizer(dpi, maxPages int) *DocumentRasterizer {
	return &DocumentRasterizer{DPI: dpi, MaxPages: maxPages}
}

func (r *DocumentRasterizer) Rasterize(ctx context.Context, docType DocumentType, content []byte) ([]Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch docType {
	case DocumentPDF:
		return r.splitPDF(content)
	case DocumentImage:
		page, err := r.normalizeImage(content)
		if err != nil {
			return nil, err
		}
		return []Page{page}, nil
	default:
		return nil, ErrUnsupportedDocument
	}
}

// splitPDF writes the document to a temp dir, optimizes it with relaxed
// validation and splits it into one file per page, keeping at most MaxPages.
func (r *DocumentRasterizer) splitPDF(content []byte) ([]Page, error) {
	tempDir, err := os.MkdirTemp("", "document-pages-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	sourcePath := filepath.Join(tempDir, "source.pdf")
	if err := os.WriteFile(sourcePath, content, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write temp PDF: %w", err)
	}

	optimizedPath := filepath.Join(tempDir, "optimized.pdf")
	if err := optimizePDF(sourcePath, optimizedPath); err != nil {
		return nil, fmt.Errorf("failed to validate/optimize PDF: %w", err)
	}
	pageCount, err := api.PageCountFile(optimizedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if pageCount == 0 {
		return nil, ErrNoPages
	}

	pagesDir := filepath.Join(tempDir, "pages")
	if err := os.Mkdir(pagesDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create pages dir: %w", err)
	}
	if err := api.SplitFile(optimizedPath, pagesDir, 1, nil); err != nil {
		return nil, fmt.Errorf("failed to split PDF: %w", err)
	}

	limit := min(pageCount, r.MaxPages)
	pages := make([]Page, 0, limit)
	for i := 1; i <= limit; i++ {
		data, err := os.ReadFile(filepath.Join(pagesDir, fmt.Sprintf("optimized_%d.pdf", i)))
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", i, err)
		}
		pages = append(pages, Page{MIMEType: "application/pdf", Data: data})
	}
	return pages, nil
}

func optimizePDF(inPath, outPath string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return api.OptimizeFile(inPath, outPath, cfg)
}

// normalizeImage decodes a PNG or JPEG, downscales it when its long edge is
// larger than an A4 page at DPI, and re-encodes it as PNG.
func (r *DocumentRasterizer) normalizeImage(content []byte) (Page, error) {
	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return Page{}, fmt.Errorf("failed to decode image: %w", err)
	}

	img = scaleToFit(img, int(a4LongEdgeInches*float64(r.DPI)))

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Page{}, fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	return Page{MIMEType: "image/png", Data: buf.Bytes()}, nil
}

func scaleToFit(src image.Image, maxEdge int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	long := max(w, h)
	if maxEdge <= 0 || long <= maxEdge {
		return src
	}

	ratio := float64(maxEdge) / float64(long)
	dst := image.NewRGBA(image.Rect(0, 0, max(1, int(float64(w)*ratio)), max(1, int(float64(h)*ratio))))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
