package workflow

import (
	"context"

	"github.com/jbdelacruz/barangay-portal/internal/domain/entity"
	domainwf "github.com/jbdelacruz/barangay-portal/internal/domain/workflow"
)

// BuildRequestStateMachine creates a state machine configured for the
// request's payment category, positioned at the request's current status.
// Guards close over the request so the machine always answers for the record
// it was built from; callers rebuild from a fresh fetch before every decision.
func BuildRequestStateMachine(req *entity.DocumentRequest) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	canReview := func(ctx context.Context) bool { return domainwf.CanReviewDocuments(req) }
	canGenerate := func(ctx context.Context) bool { return domainwf.CanGenerateDocument(req) }
	canVerify := func(ctx context.Context) bool { return domainwf.CanVerifyPayment(req) }
	canRejectPay := func(ctx context.Context) bool { return domainwf.CanRejectPayment(req) }
	canMarkReady := func(ctx context.Context) bool { return domainwf.CanMarkReady(req) }
	canComplete := func(ctx context.Context) bool { return domainwf.CanComplete(req) }

	switch domainwf.Classify(req) {
	case domainwf.CategoryFree:
		// No payment gating at all: review, then generate.
		builder.Configure(domainwf.StatePending).
			PermitIf(domainwf.TriggerApproveDocuments, domainwf.StateApproved, canReview).
			PermitIf(domainwf.TriggerRejectDocuments, domainwf.StateRejected, canReview)

		builder.Configure(domainwf.StateApproved).
			PermitIf(domainwf.TriggerGenerateDocument, domainwf.StateProcessing, canGenerate)

	case domainwf.CategoryCashOnPickup:
		// Documents first; cash is collected and verified at the window.
		builder.Configure(domainwf.StatePending).
			PermitIf(domainwf.TriggerApproveDocuments, domainwf.StateApproved, canReview).
			PermitIf(domainwf.TriggerRejectDocuments, domainwf.StateRejected, canReview)

		builder.Configure(domainwf.StateApproved).
			PermitIf(domainwf.TriggerVerifyPayment, domainwf.StateApproved, canVerify).
			PermitIf(domainwf.TriggerRejectPayment, domainwf.StateRejected, canRejectPay).
			PermitIf(domainwf.TriggerGenerateDocument, domainwf.StateProcessing, canGenerate)

	case domainwf.CategoryGCashOnline:
		// Payment proof must be verified before any document review happens.
		builder.Configure(domainwf.StatePending).
			PermitIf(domainwf.TriggerVerifyPayment, domainwf.StatePaymentVerified, canVerify).
			PermitIf(domainwf.TriggerRejectPayment, domainwf.StateRejected, canRejectPay)

		builder.Configure(domainwf.StatePaymentVerified).
			PermitIf(domainwf.TriggerApproveDocuments, domainwf.StatePaymentVerified, canReview).
			PermitIf(domainwf.TriggerRejectDocuments, domainwf.StateRejected, canReview).
			PermitIf(domainwf.TriggerGenerateDocument, domainwf.StateProcessing, canGenerate)
	}

	// Generation onward is identical for all categories.
	builder.Configure(domainwf.StateProcessing).
		PermitIf(domainwf.TriggerGenerateDocument, domainwf.StateProcessing, canGenerate).
		PermitIf(domainwf.TriggerMarkReady, domainwf.StateReadyForPickup, canMarkReady)

	builder.Configure(domainwf.StateReadyForPickup).
		PermitIf(domainwf.TriggerComplete, domainwf.StateCompleted, canComplete)

	// completed and rejected are terminal, no outgoing transitions

	return builder.Build(domainwf.State(req.Status))
}
