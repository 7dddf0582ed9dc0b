package port

import (
	"context"
	"errors"
	"time"

	"github.com/jbdelacruz/barangay-portal/internal/domain/entity"
)

// ErrConflict is returned when a compare-and-swap status update finds the
// record changed since it was last fetched.
var ErrConflict = errors.New("request changed concurrently")

// RequestFilter narrows List results
type RequestFilter struct {
	Status        string
	PaymentMethod string
	DocumentType  string
	Search        string // matches tracking number or resident name
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

// StatusUpdate carries the evidence fields written alongside a transition.
// Nil pointer fields are left untouched.
type StatusUpdate struct {
	NewStatus         string
	PaymentVerifiedAt *time.Time
	PaymentVerifiedBy string
	ReviewedAt        *time.Time
	ReviewedBy        string
	RejectionReason   string
	GeneratedURL      string
	GeneratedAt       *time.Time
	GeneratedBy       string
}

// RequestRepository defines persistence operations for DocumentRequest
type RequestRepository interface {
	Create(ctx context.Context, req *entity.DocumentRequest) error
	GetByID(ctx context.Context, id int64) (*entity.DocumentRequest, error)
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (*entity.DocumentRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]*entity.DocumentRequest, error)

	// UpdateStatus applies the update only if the stored status still equals
	// expectedStatus; returns ErrConflict otherwise.
	UpdateStatus(ctx context.Context, id int64, expectedStatus string, update StatusUpdate) error

	SetPaymentProof(ctx context.Context, id int64, proofURL, referenceNumber string) error
	AddSupportingDocument(ctx context.Context, id int64, docURL string) error
	CountByStatus(ctx context.Context) (map[string]int, error)

	// Delete removes a request record. Callers must only delete requests in a
	// terminal status.
	Delete(ctx context.Context, id int64) error
}

// HistoryRepository defines persistence operations for the append-only
// status history of a request
type HistoryRepository interface {
	Append(ctx context.Context, entry *entity.StatusHistoryEntry) error
	GetByRequestID(ctx context.Context, requestID int64) ([]*entity.StatusHistoryEntry, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
