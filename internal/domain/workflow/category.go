package workflow

import "github.com/jbdelacruz/barangay-portal/internal/domain/entity"

// PaymentCategory classifies a request by how its fee is settled. Exactly one
// category applies to any request, and the category never changes after
// submission because amount and payment method are immutable.
type PaymentCategory string

const (
	// CategoryFree has no fee at all; payment gating is skipped entirely.
	CategoryFree PaymentCategory = "free"

	// CategoryCashOnPickup collects the fee in person at pickup, after the
	// documents have already been reviewed.
	CategoryCashOnPickup PaymentCategory = "cash_on_pickup"

	// CategoryGCashOnline requires the submitted payment proof to be verified
	// before staff spend any time reviewing documents.
	CategoryGCashOnline PaymentCategory = "gcash_online"
)

// String returns the string representation of the category
func (c PaymentCategory) String() string {
	return string(c)
}

// Classify returns the payment category of a request. It is total: every
// request falls into exactly one of the three categories.
func Classify(req *entity.DocumentRequest) PaymentCategory {
	if req.Amount.Sign() == 0 {
		return CategoryFree
	}
	if req.PaymentMethod == entity.PaymentMethodOnline {
		return CategoryGCashOnline
	}
	return CategoryCashOnPickup
}
