package workflow

// Trigger represents a staff action that can cause a state transition
type Trigger string

const (
	TriggerVerifyPayment    Trigger = "VERIFY_PAYMENT"
	TriggerRejectPayment    Trigger = "REJECT_PAYMENT"
	TriggerApproveDocuments Trigger = "APPROVE_DOCUMENTS"
	TriggerRejectDocuments  Trigger = "REJECT_DOCUMENTS"
	TriggerGenerateDocument Trigger = "GENERATE_DOCUMENT"
	TriggerMarkReady        Trigger = "MARK_READY_FOR_PICKUP"
	TriggerComplete         Trigger = "COMPLETE"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
