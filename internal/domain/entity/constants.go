package entity

// Status constants for DocumentRequest. These are the wire values stored in
// the database and returned by the API.
const (
	StatusPending         = "pending"
	StatusPaymentVerified = "payment_verified"
	StatusApproved        = "approved"
	StatusProcessing      = "processing"
	StatusReadyForPickup  = "ready_for_pickup"
	StatusCompleted       = "completed"
	StatusRejected        = "rejected"
)

// Payment method constants
const (
	PaymentMethodOnline = "online" // GCash, proof submitted up front
	PaymentMethodWalkIn = "walkin" // cash collected at pickup
)

// Document type constants for the documents the barangay issues
const (
	DocumentTypeClearance        = "barangay_clearance"
	DocumentTypeIndigency        = "certificate_of_indigency"
	DocumentTypeResidency        = "certificate_of_residency"
	DocumentTypeBusinessPermit   = "business_permit"
	DocumentTypeGoodMoral        = "certificate_of_good_moral"
	DocumentTypeFirstTimeJobSeek = "first_time_jobseeker"
)

// Action type constants for status history entries
const (
	ActionTypeSubmit        = "SUBMIT"
	ActionTypeVerifyPayment = "VERIFY_PAYMENT"
	ActionTypeRejectPayment = "REJECT_PAYMENT"
	ActionTypeApproveDocs   = "APPROVE_DOCUMENTS"
	ActionTypeRejectDocs    = "REJECT_DOCUMENTS"
	ActionTypeGenerate      = "GENERATE_DOCUMENT"
	ActionTypeMarkReady     = "MARK_READY_FOR_PICKUP"
	ActionTypeComplete      = "COMPLETE"
)
