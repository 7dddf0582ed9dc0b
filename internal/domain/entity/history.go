package entity

import "time"

// StatusHistoryEntry records a single status transition of a request. The
// history is append-only; entries are never mutated or removed.
type StatusHistoryEntry struct {
	ID             int64     `json:"id"`
	RequestID      int64     `json:"request_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	ActionType     string    `json:"action_type"`
	ChangedBy      string    `json:"changed_by"`
	Reason         string    `json:"reason,omitempty"`
	ChangedAt      time.Time `json:"changed_at"`
}
