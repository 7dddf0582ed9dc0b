package workflow

import (
	"context"
	"errors"

	"github.com/jbdelacruz/barangay-portal/internal/domain/entity"
	domainwf "github.com/jbdelacruz/barangay-portal/internal/domain/workflow"
)

var (
	// ErrRequestNotFound is returned when a transition targets an unknown request
	ErrRequestNotFound = errors.New("document request not found")

	// ErrReasonRequired is returned when a rejection is fired without a reason
	ErrReasonRequired = errors.New("rejection reason is required")
)

// Action carries the metadata written alongside a transition
type Action struct {
	Actor  string
	Reason string // required for rejections, optional notes otherwise

	// GeneratedURL is set when firing MarkReady after a successful render so
	// the generation evidence lands in the same transition.
	GeneratedURL string
}

// Engine drives guarded status transitions for document requests. All status
// writes go through here: the engine rebuilds the per-category state machine
// from a fresh record, fires the trigger, and persists the new status together
// with its evidence fields and a history entry in one transaction.
type Engine interface {
	// Transition fires the trigger for the request and returns the updated record
	Transition(ctx context.Context, requestID int64, trigger domainwf.Trigger, action Action) (*entity.DocumentRequest, error)

	// PermittedTriggers returns the triggers currently legal for the request
	PermittedTriggers(ctx context.Context, requestID int64) ([]domainwf.Trigger, error)
}
