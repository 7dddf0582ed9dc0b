package workflow

// State represents a workflow state in the document request lifecycle
type State string

const (
	StatePending         State = "pending"
	StatePaymentVerified State = "payment_verified"
	StateApproved        State = "approved"
	StateProcessing      State = "processing"
	StateReadyForPickup  State = "ready_for_pickup"
	StateCompleted       State = "completed"
	StateRejected        State = "rejected"
)

var validStates = map[State]bool{
	StatePending:         true,
	StatePaymentVerified: true,
	StateApproved:        true,
	StateProcessing:      true,
	StateReadyForPickup:  true,
	StateCompleted:       true,
	StateRejected:        true,
}

var terminalStates = map[State]bool{
	StateCompleted: true,
	StateRejected:  true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}
