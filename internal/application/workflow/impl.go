package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jbdelacruz/barangay-portal/internal/application/port"
	"github.com/jbdelacruz/barangay-portal/internal/domain/entity"
	domainwf "github.com/jbdelacruz/barangay-portal/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type engineImpl struct {
	requestRepo port.RequestRepository
	historyRepo port.HistoryRepository
	txManager   port.TransactionManager
	logger      Logger
	now         func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithClock overrides the engine clock, used by tests
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	requestRepo port.RequestRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	logger Logger,
	opts ...EngineOption,
) Engine {
	e := &engineImpl{
		requestRepo: requestRepo,
		historyRepo: historyRepo,
		txManager:   txManager,
		logger:      logger,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *engineImpl) Transition(ctx context.Context, requestID int64, trigger domainwf.Trigger, action Action) (*entity.DocumentRequest, error) {
	req, err := e.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("load request %d: %w", requestID, err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}

	if isRejection(trigger) && strings.TrimSpace(action.Reason) == "" {
		return nil, ErrReasonRequired
	}

	previousStatus := req.Status
	machine := BuildRequestStateMachine(req)
	if err := machine.Fire(ctx, trigger); err != nil {
		e.logger.Info("Transition denied",
			"request_id", requestID,
			"trigger", trigger.String(),
			"status", previousStatus,
			"error", err.Error())
		return nil, err
	}
	newStatus := machine.State().String()

	update := e.buildUpdate(trigger, newStatus, action)

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.requestRepo.UpdateStatus(txCtx, requestID, previousStatus, update); err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		entry := &entity.StatusHistoryEntry{
			RequestID:      requestID,
			PreviousStatus: previousStatus,
			NewStatus:      newStatus,
			ActionType:     actionType(trigger),
			ChangedBy:      action.Actor,
			Reason:         action.Reason,
			ChangedAt:      e.now(),
		}
		if err := e.historyRepo.Append(txCtx, entry); err != nil {
			return fmt.Errorf("append history: %w", err)
		}

		return nil
	})
	if err != nil {
		e.logger.Error("Transition failed",
			"request_id", requestID,
			"trigger", trigger.String(),
			"error", err.Error())
		return nil, err
	}

	e.logger.Info("Status updated",
		"request_id", requestID,
		"trigger", trigger.String(),
		"from", previousStatus,
		"to", newStatus,
		"actor", action.Actor)

	// Return the freshly persisted record; the caller re-derives guards from
	// it rather than trusting any in-memory copy.
	updated, err := e.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrRequestNotFound
	}
	return updated, nil
}

func (e *engineImpl) PermittedTriggers(ctx context.Context, requestID int64) ([]domainwf.Trigger, error) {
	req, err := e.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("load request %d: %w", requestID, err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}

	return BuildRequestStateMachine(req).PermittedTriggers(ctx), nil
}

// buildUpdate maps a fired trigger to the evidence fields written with it
func (e *engineImpl) buildUpdate(trigger domainwf.Trigger, newStatus string, action Action) port.StatusUpdate {
	now := e.now()
	update := port.StatusUpdate{NewStatus: newStatus}

	switch trigger {
	case domainwf.TriggerVerifyPayment:
		update.PaymentVerifiedAt = &now
		update.PaymentVerifiedBy = action.Actor
	case domainwf.TriggerApproveDocuments:
		update.ReviewedAt = &now
		update.ReviewedBy = action.Actor
	case domainwf.TriggerRejectPayment, domainwf.TriggerRejectDocuments:
		// reviewedAt is preserved on the cash reject-payment path; the
		// terminal status alone gates any further action.
		update.RejectionReason = action.Reason
	case domainwf.TriggerMarkReady:
		if action.GeneratedURL != "" {
			update.GeneratedURL = action.GeneratedURL
			update.GeneratedAt = &now
			update.GeneratedBy = action.Actor
		}
	}

	return update
}

func isRejection(trigger domainwf.Trigger) bool {
	return trigger == domainwf.TriggerRejectPayment || trigger == domainwf.TriggerRejectDocuments
}

func actionType(trigger domainwf.Trigger) string {
	switch trigger {
	case domainwf.TriggerVerifyPayment:
		return entity.ActionTypeVerifyPayment
	case domainwf.TriggerRejectPayment:
		return entity.ActionTypeRejectPayment
	case domainwf.TriggerApproveDocuments:
		return entity.ActionTypeApproveDocs
	case domainwf.TriggerRejectDocuments:
		return entity.ActionTypeRejectDocs
	case domainwf.TriggerGenerateDocument:
		return entity.ActionTypeGenerate
	case domainwf.TriggerMarkReady:
		return entity.ActionTypeMarkReady
	case domainwf.TriggerComplete:
		return entity.ActionTypeComplete
	}
	return trigger.String()
}
