package port

import (
	"context"

	"github.com/jbdelacruz/barangay-portal/internal/domain/entity"
)

// DocumentGenerator defines operations against the external PDF generation
// service. Preview returns the field map the service would render so staff can
// check it; Render produces the final document and returns its URL.
type DocumentGenerator interface {
	Preview(ctx context.Context, req *entity.DocumentRequest) (map[string]string, error)
	Render(ctx context.Context, req *entity.DocumentRequest, data map[string]string) (string, error)
}

// SMSSender defines outbound resident notifications. Failures must never
// block a workflow transition.
type SMSSender interface {
	Send(ctx context.Context, mobileNumber, message string) error
}

// PDFInspection is the result of inspecting an uploaded PDF
type PDFInspection struct {
	PageCount int
	Thumbnail []byte // PNG render of the first page
}

// PDFInspector validates uploaded supporting documents
type PDFInspector interface {
	Inspect(ctx context.Context, content []byte) (*PDFInspection, error)
}
