package workflow

import "github.com/jbdelacruz/barangay-portal/internal/domain/entity"

// Guard predicates over a DocumentRequest. These are the single source of
// truth for every transition precondition: the console asks them to decide
// which buttons to enable, and the workflow engine asks the same functions
// before mutating anything. The "is the nullable timestamp set" checks live
// here and nowhere else.
//
// The ordering asymmetry between the two paid categories is deliberate and
// load-bearing: cash-on-pickup reviews documents first and collects payment at
// the window, while GCash requires the payment proof to be verified before any
// document review happens.

// IsPaymentVerified reports whether the request's payment has been verified.
// Free requests never require verification, so for them this is always false.
func IsPaymentVerified(req *entity.DocumentRequest) bool {
	if Classify(req) == CategoryFree {
		return false
	}
	return req.PaymentVerifiedAt != nil
}

// CanReviewDocuments reports whether the supporting documents can be reviewed
// (approved or rejected) right now.
func CanReviewDocuments(req *entity.DocumentRequest) bool {
	if req.IsReviewed() {
		return false
	}

	switch Classify(req) {
	case CategoryGCashOnline:
		// Payment MUST be verified before staff review anything.
		return req.Status == entity.StatusPaymentVerified
	default:
		// Free and cash-on-pickup requests are reviewed straight away.
		return req.Status == entity.StatusPending
	}
}

// CanGenerateDocument reports whether the document can be generated right now.
// A request already in processing may always retry generation.
func CanGenerateDocument(req *entity.DocumentRequest) bool {
	if req.Status == entity.StatusProcessing {
		return true
	}

	switch Classify(req) {
	case CategoryFree:
		return req.Status == entity.StatusApproved
	case CategoryCashOnPickup:
		return req.Status == entity.StatusApproved && IsPaymentVerified(req)
	case CategoryGCashOnline:
		return req.Status == entity.StatusPaymentVerified && req.IsReviewed()
	}

	return false
}

// CanVerifyPayment reports whether payment verification is a legal action.
// Re-verifying an already verified payment is never allowed.
func CanVerifyPayment(req *entity.DocumentRequest) bool {
	if IsPaymentVerified(req) {
		return false
	}

	switch Classify(req) {
	case CategoryGCashOnline:
		return req.Status == entity.StatusPending
	case CategoryCashOnPickup:
		// Cash is handed over at the window once the documents are approved.
		return req.Status == entity.StatusApproved
	}

	return false
}

// CanRejectPayment reports whether rejecting the payment is a legal action.
// Payment already verified can no longer be rejected.
func CanRejectPayment(req *entity.DocumentRequest) bool {
	if IsPaymentVerified(req) {
		return false
	}

	switch Classify(req) {
	case CategoryGCashOnline:
		return req.Status == entity.StatusPending
	case CategoryCashOnPickup:
		return req.Status == entity.StatusApproved
	}

	return false
}

// CanMarkReady reports whether the request can be marked ready for pickup.
// Processing is the only valid starting point, which also makes the action
// non-repeatable once the request is already ready_for_pickup.
func CanMarkReady(req *entity.DocumentRequest) bool {
	return req.Status == entity.StatusProcessing
}

// CanComplete reports whether the pickup can be completed.
func CanComplete(req *entity.DocumentRequest) bool {
	return req.Status == entity.StatusReadyForPickup
}
