package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentRequest represents a resident's request for an official barangay
// document. It is the central entity of the portal: created on submission,
// mutated only through workflow transitions, never deleted while active.
type DocumentRequest struct {
	ID             int64  `json:"id"`
	TrackingNumber string `json:"tracking_number"`

	// Requester details captured at submission
	ResidentName    string `json:"resident_name"`
	ResidentContact string `json:"resident_contact"`
	ResidentAddress string `json:"resident_address"`
	Purpose         string `json:"purpose"`

	// Classification inputs. Amount and PaymentMethod are immutable after
	// creation; together they determine the payment category.
	DocumentType  string          `json:"document_type"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`

	Status string `json:"status"`

	// Payment evidence. PaymentVerifiedAt being non-nil is the sole source of
	// truth for "payment verified".
	PaymentProofURL        string     `json:"payment_proof_url,omitempty"`
	PaymentReferenceNumber string     `json:"payment_reference_number,omitempty"`
	PaymentVerifiedAt      *time.Time `json:"payment_verified_at,omitempty"`
	PaymentVerifiedBy      string     `json:"payment_verified_by,omitempty"`

	// Review evidence. ReviewedAt being non-nil is the sole source of truth
	// for "documents reviewed".
	SupportingDocuments []string   `json:"supporting_documents"`
	ReviewedAt          *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy          string     `json:"reviewed_by,omitempty"`
	RejectionReason     string     `json:"rejection_reason,omitempty"`

	// Generation evidence
	GeneratedDocumentURL string     `json:"generated_document_url,omitempty"`
	GeneratedAt          *time.Time `json:"generated_at,omitempty"`
	GeneratedBy          string     `json:"generated_by,omitempty"`

	SubmittedAt time.Time `json:"submitted_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsPaymentVerified reports whether payment evidence has been verified.
func (r *DocumentRequest) IsPaymentVerified() bool {
	return r.PaymentVerifiedAt != nil
}

// IsReviewed reports whether the supporting documents have been reviewed.
func (r *DocumentRequest) IsReviewed() bool {
	return r.ReviewedAt != nil
}

// IsTerminal reports whether the request has reached a terminal status.
func (r *DocumentRequest) IsTerminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusRejected
}

// IsFree reports whether the request carries no fee.
func (r *DocumentRequest) IsFree() bool {
	return r.Amount.Sign() == 0
}
