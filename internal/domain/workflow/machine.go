package workflow

import "context"

// StateMachine tracks the current state of a document request and validates
// transitions. Guards are evaluated on CanFire as well as Fire so that the
// same answer drives both the console's enabled buttons and the backend
// enforcement.
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is permitted in the current state
	// and at least one of its guards passes
	CanFire(ctx context.Context, trigger Trigger) bool

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns all triggers that can currently be fired
	PermittedTriggers(ctx context.Context) []Trigger
}
