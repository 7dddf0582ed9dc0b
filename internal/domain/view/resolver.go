// Package view derives console-facing display state from a document request.
// Everything here is a pure function of (request, category): the initial tab,
// the status badge, the block message for disabled panels, and the set of
// enabled actions all come from one guard evaluation so that the console never
// re-implements workflow rules.
package view

import (
	"github.com/jbdelacruz/barangay-portal/internal/domain/entity"
	"github.com/jbdelacruz/barangay-portal/internal/domain/workflow"
)

// Tab identifies a panel in the request detail view
type Tab string

const (
	TabDocuments Tab = "documents"
	TabPayment   Tab = "payment"
)

// BadgeTone is the cosmetic tone of a status badge
type BadgeTone string

const (
	ToneInfo    BadgeTone = "info"
	ToneWarning BadgeTone = "warning"
	ToneSuccess BadgeTone = "success"
	ToneDanger  BadgeTone = "danger"
	ToneNeutral BadgeTone = "neutral"
)

// Badge is the label and tone shown for a request's current status
type Badge struct {
	Label string    `json:"label"`
	Tone  BadgeTone `json:"tone"`
}

// Actions lists which staff actions are currently enabled. The console
// disables any control whose flag is false.
type Actions struct {
	VerifyPayment    bool `json:"verify_payment"`
	RejectPayment    bool `json:"reject_payment"`
	ApproveDocuments bool `json:"approve_documents"`
	RejectDocuments  bool `json:"reject_documents"`
	GenerateDocument bool `json:"generate_document"`
	MarkReady        bool `json:"mark_ready"`
	Complete         bool `json:"complete"`
}

// State is the full derived view state for a request detail view
type State struct {
	Category     workflow.PaymentCategory `json:"category"`
	InitialTab   Tab                      `json:"initial_tab"`
	Badge        Badge                    `json:"badge"`
	BlockMessage string                   `json:"block_message,omitempty"`
	Actions      Actions                  `json:"actions"`
}

// Resolve derives the view state for a request. It has no side effects and
// reads nothing beyond the request itself.
func Resolve(req *entity.DocumentRequest) State {
	category := workflow.Classify(req)

	return State{
		Category:     category,
		InitialTab:   initialTab(req, category),
		Badge:        badge(req, category),
		BlockMessage: blockMessage(req, category),
		Actions: Actions{
			VerifyPayment:    workflow.CanVerifyPayment(req),
			RejectPayment:    workflow.CanRejectPayment(req),
			ApproveDocuments: workflow.CanReviewDocuments(req),
			RejectDocuments:  workflow.CanReviewDocuments(req),
			GenerateDocument: workflow.CanGenerateDocument(req),
			MarkReady:        workflow.CanMarkReady(req),
			Complete:         workflow.CanComplete(req),
		},
	}
}

func initialTab(req *entity.DocumentRequest, category workflow.PaymentCategory) Tab {
	if category == workflow.CategoryFree {
		return TabDocuments
	}

	// Paid categories open on documents once review is possible or already
	// done; until then staff land on the payment panel.
	if workflow.CanReviewDocuments(req) || req.IsReviewed() {
		return TabDocuments
	}
	if workflow.IsPaymentVerified(req) {
		return TabDocuments
	}
	return TabPayment
}

func badge(req *entity.DocumentRequest, category workflow.PaymentCategory) Badge {
	switch req.Status {
	case entity.StatusPending:
		if category == workflow.CategoryGCashOnline {
			return Badge{Label: "Awaiting Payment Verification", Tone: ToneWarning}
		}
		return Badge{Label: "Pending Review", Tone: ToneInfo}
	case entity.StatusPaymentVerified:
		if req.IsReviewed() {
			return Badge{Label: "Payment Verified · Documents Approved", Tone: ToneSuccess}
		}
		return Badge{Label: "Payment Verified · For Review", Tone: ToneInfo}
	case entity.StatusApproved:
		if category == workflow.CategoryCashOnPickup && !workflow.IsPaymentVerified(req) {
			return Badge{Label: "Approved · Awaiting Payment", Tone: ToneWarning}
		}
		return Badge{Label: "Approved", Tone: ToneSuccess}
	case entity.StatusProcessing:
		return Badge{Label: "Processing", Tone: ToneInfo}
	case entity.StatusReadyForPickup:
		return Badge{Label: "Ready for Pickup", Tone: ToneSuccess}
	case entity.StatusCompleted:
		return Badge{Label: "Completed", Tone: ToneNeutral}
	case entity.StatusRejected:
		return Badge{Label: "Rejected", Tone: ToneDanger}
	}
	return Badge{Label: req.Status, Tone: ToneNeutral}
}

func blockMessage(req *entity.DocumentRequest, category workflow.PaymentCategory) string {
	if req.IsTerminal() {
		return ""
	}

	switch category {
	case workflow.CategoryGCashOnline:
		// The documents tab stays blocked until the payment proof checks out.
		if !workflow.IsPaymentVerified(req) && !workflow.CanReviewDocuments(req) {
			return "Payment Verification Required"
		}
	case workflow.CategoryCashOnPickup:
		if req.Status == entity.StatusApproved && !workflow.IsPaymentVerified(req) {
			return "Payment Collection Required"
		}
	}
	return ""
}
