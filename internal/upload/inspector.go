package upload

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/jbdelacruz/barangay-portal/internal/application/port"
)

// Inspector validates uploaded PDF documents using mupdf. Unreadable or
// empty files are rejected before anything is stored.
type Inspector struct {
	logger *zap.Logger
}

// NewInspector creates a new PDF inspector
func NewInspector(logger *zap.Logger) *Inspector {
	return &Inspector{logger: logger}
}

var _ port.PDFInspector = (*Inspector)(nil)

// Inspect opens the PDF, counts pages and renders the first page as a PNG
// thumbnail for the staff console
func (i *Inspector) Inspect(ctx context.Context, content []byte) (*port.PDFInspection, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		i.logger.Warn("Failed to open uploaded PDF", zap.Error(err))
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	img, err := doc.Image(0)
	if err != nil {
		i.logger.Warn("Failed to render first page", zap.Error(err))
		return nil, fmt.Errorf("failed to render first page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	i.logger.Debug("Inspected uploaded PDF",
		zap.Int("page_count", pageCount),
		zap.Int("thumbnail_bytes", buf.Len()))

	return &port.PDFInspection{
		PageCount: pageCount,
		Thumbnail: buf.Bytes(),
	}, nil
}

// AllowedContentType reports whether an uploaded file's declared content type
// is accepted for supporting documents or payment proofs
func AllowedContentType(contentType string) bool {
	switch contentType {
	case "application/pdf", "image/jpeg", "image/png":
		return true
	}
	return false
}

// IsPDF reports whether the content looks like a PDF file
func IsPDF(content []byte) bool {
	return len(content) >= 5 && bytes.Equal(content[:5], []byte("%PDF-"))
}
