package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/shopspring/decimal"

	"github.com/jbdelacruz/barangay-portal/internal/application/port"
	appwf "github.com/jbdelacruz/barangay-portal/internal/application/workflow"
	"github.com/jbdelacruz/barangay-portal/internal/domain/entity"
	domainwf "github.com/jbdelacruz/barangay-portal/internal/domain/workflow"
	"github.com/jbdelacruz/barangay-portal/internal/domain/view"
	"github.com/jbdelacruz/barangay-portal/internal/upload"
	"github.com/jbdelacruz/barangay-portal/pkg/utils"
)

const trackingAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

var (
	// ErrUploadNotAllowed is returned when a file upload is rejected for the
	// request's current category or status
	ErrUploadNotAllowed = errors.New("upload not allowed for this request")

	// ErrNotTerminal is returned when a delete targets a request still in flight
	ErrNotTerminal = errors.New("request is not in a terminal status")

	// ErrFileTooLarge is returned when an upload exceeds the configured limit
	ErrFileTooLarge = errors.New("file exceeds maximum upload size")

	// ErrUnsupportedFileType is returned for uploads with a disallowed content type
	ErrUnsupportedFileType = errors.New("unsupported file type")
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// SubmitInput carries a resident's submission
type SubmitInput struct {
	ResidentName    string
	ResidentContact string
	ResidentAddress string
	Purpose         string
	DocumentType    string
	Amount          decimal.Decimal
	PaymentMethod   string
}

// TrackingInfo is the public view of a request
type TrackingInfo struct {
	Request *entity.DocumentRequest     `json:"request"`
	History []*entity.StatusHistoryEntry `json:"history"`
}

// BulkDeleteResult reports the outcome for one record of a bulk delete
type BulkDeleteResult struct {
	ID      int64  `json:"id"`
	Deleted bool   `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// UploadInput carries an uploaded file
type UploadInput struct {
	FileName    string
	ContentType string
	Content     []byte

	// ReferenceNumber is set for payment proof uploads only
	ReferenceNumber string
}

// RequestService orchestrates the document request lifecycle: submission,
// staff transitions, uploads, tracking and administration.
type RequestService interface {
	Submit(ctx context.Context, input SubmitInput) (*entity.DocumentRequest, error)
	GetByID(ctx context.Context, id int64) (*entity.DocumentRequest, error)
	Track(ctx context.Context, trackingNumber string) (*TrackingInfo, error)
	List(ctx context.Context, filter port.RequestFilter) ([]*entity.DocumentRequest, error)
	History(ctx context.Context, id int64) ([]*entity.StatusHistoryEntry, error)
	GetViewState(ctx context.Context, id int64) (*view.State, error)

	VerifyPayment(ctx context.Context, id int64, actor string) (*entity.DocumentRequest, error)
	RejectPayment(ctx context.Context, id int64, actor, reason string) (*entity.DocumentRequest, error)
	ApproveDocuments(ctx context.Context, id int64, actor string) (*entity.DocumentRequest, error)
	RejectDocuments(ctx context.Context, id int64, actor, reason string) (*entity.DocumentRequest, error)
	StartGeneration(ctx context.Context, id int64, actor string) (*entity.DocumentRequest, error)
	MarkReadyForPickup(ctx context.Context, id int64, actor, generatedURL string) (*entity.DocumentRequest, error)
	Complete(ctx context.Context, id int64, actor string) (*entity.DocumentRequest, error)

	PreviewDocument(ctx context.Context, id int64) (map[string]string, error)

	UploadPaymentProof(ctx context.Context, id int64, input UploadInput) (string, error)
	UploadSupportingDocument(ctx context.Context, id int64, input UploadInput) (string, error)

	BulkDelete(ctx context.Context, ids []int64) []BulkDeleteResult
	Stats(ctx context.Context) (map[string]int, error)
}

type requestServiceImpl struct {
	requestRepo   port.RequestRepository
	historyRepo   port.HistoryRepository
	txManager     port.TransactionManager
	engine        appwf.Engine
	generator     port.DocumentGenerator
	smsSender     port.SMSSender
	fileStorage   port.FileStorage
	folders       port.FolderLayout
	pdfInspector  port.PDFInspector
	statsCache    *StatsCache
	maxUploadSize int64
	logger        Logger
	now           func() time.Time
}

// RequestServiceDeps bundles the collaborators of the request service
type RequestServiceDeps struct {
	RequestRepo   port.RequestRepository
	HistoryRepo   port.HistoryRepository
	TxManager     port.TransactionManager
	Engine        appwf.Engine
	Generator     port.DocumentGenerator
	SMSSender     port.SMSSender
	FileStorage   port.FileStorage
	Folders       port.FolderLayout
	PDFInspector  port.PDFInspector
	StatsCache    *StatsCache
	MaxUploadSize int64
	Logger        Logger
}

// NewRequestService creates a new request service
func NewRequestService(deps RequestServiceDeps) RequestService {
	maxSize := deps.MaxUploadSize
	if maxSize <= 0 {
		maxSize = 10 << 20
	}
	return &requestServiceImpl{
		requestRepo:   deps.RequestRepo,
		historyRepo:   deps.HistoryRepo,
		txManager:     deps.TxManager,
		engine:        deps.Engine,
		generator:     deps.Generator,
		smsSender:     deps.SMSSender,
		fileStorage:   deps.FileStorage,
		folders:       deps.Folders,
		pdfInspector:  deps.PDFInspector,
		statsCache:    deps.StatsCache,
		maxUploadSize: maxSize,
		logger:        deps.Logger,
		now:           time.Now,
	}
}

// Submit creates a new request in pending status with a fresh tracking number
// and its initial history entry
func (s *requestServiceImpl) Submit(ctx context.Context, input SubmitInput) (*entity.DocumentRequest, error) {
	if err := utils.ValidateContactNumber(input.ResidentContact); err != nil {
		return nil, err
	}
	if err := utils.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	suffix, err := gonanoid.Generate(trackingAlphabet, 10)
	if err != nil {
		return nil, fmt.Errorf("generate tracking number: %w", err)
	}

	now := s.now()
	req := &entity.DocumentRequest{
		TrackingNumber:      "BRGY-" + suffix,
		ResidentName:        utils.SanitizeString(strings.TrimSpace(input.ResidentName)),
		ResidentContact:     input.ResidentContact,
		ResidentAddress:     utils.SanitizeString(strings.TrimSpace(input.ResidentAddress)),
		Purpose:             utils.SanitizeString(strings.TrimSpace(input.Purpose)),
		DocumentType:        input.DocumentType,
		Amount:              input.Amount,
		PaymentMethod:       input.PaymentMethod,
		Status:              entity.StatusPending,
		SupportingDocuments: []string{},
		SubmittedAt:         now,
		UpdatedAt:           now,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.requestRepo.Create(txCtx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		entry := &entity.StatusHistoryEntry{
			RequestID:      req.ID,
			PreviousStatus: "",
			NewStatus:      entity.StatusPending,
			ActionType:     entity.ActionTypeSubmit,
			ChangedBy:      req.ResidentName,
			ChangedAt:      now,
		}
		if err := s.historyRepo.Append(txCtx, entry); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to submit request", "error", err.Error())
		return nil, err
	}

	s.statsCache.Invalidate()
	s.logger.Info("Request submitted",
		"request_id", req.ID,
		"tracking_number", req.TrackingNumber,
		"document_type", req.DocumentType,
		"payment_method", req.PaymentMethod)

	return req, nil
}

// GetByID retrieves a request
func (s *requestServiceImpl) GetByID(ctx context.Context, id int64) (*entity.DocumentRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, appwf.ErrRequestNotFound
	}
	return req, nil
}

// Track returns the public view of a request by tracking number
func (s *requestServiceImpl) Track(ctx context.Context, trackingNumber string) (*TrackingInfo, error) {
	if err := utils.ValidateTrackingNumber(trackingNumber); err != nil {
		return nil, err
	}

	req, err := s.requestRepo.GetByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, appwf.ErrRequestNotFound
	}

	history, err := s.historyRepo.GetByRequestID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	return &TrackingInfo{Request: req, History: history}, nil
}

// List retrieves requests for the staff console
func (s *requestServiceImpl) List(ctx context.Context, filter port.RequestFilter) ([]*entity.DocumentRequest, error) {
	return s.requestRepo.List(ctx, filter)
}

// History returns the status history of a request
func (s *requestServiceImpl) History(ctx context.Context, id int64) ([]*entity.StatusHistoryEntry, error) {
	req, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.historyRepo.GetByRequestID(ctx, req.ID)
}

// GetViewState resolves the console view state for a request
func (s *requestServiceImpl) GetViewState(ctx context.Context, id int64) (*view.State, error) {
	req, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	state := view.Resolve(req)
	return &state, nil
}

func (s *requestServiceImpl) VerifyPayment(ctx context.Context, id int64, actor string) (*entity.DocumentRequest, error) {
	return s.transition(ctx, id, domainwf.TriggerVerifyPayment, appwf.Action{Actor: actor})
}

func (s *requestServiceImpl) RejectPayment(ctx context.Context, id int64, actor, reason string) (*entity.DocumentRequest, error) {
	return s.transition(ctx, id, domainwf.TriggerRejectPayment, appwf.Action{Actor: actor, Reason: reason})
}

func (s *requestServiceImpl) ApproveDocuments(ctx context.Context, id int64, actor string) (*entity.DocumentRequest, error) {
	return s.transition(ctx, id, domainwf.TriggerApproveDocuments, appwf.Action{Actor: actor})
}

func (s *requestServiceImpl) RejectDocuments(ctx context.Context, id int64, actor, reason string) (*entity.DocumentRequest, error) {
	return s.transition(ctx, id, domainwf.TriggerRejectDocuments, appwf.Action{Actor: actor, Reason: reason})
}

func (s *requestServiceImpl) StartGeneration(ctx context.Context, id int64, actor string) (*entity.DocumentRequest, error) {
	return s.transition(ctx, id, domainwf.TriggerGenerateDocument, appwf.Action{Actor: actor})
}

func (s *requestServiceImpl) MarkReadyForPickup(ctx context.Context, id int64, actor, generatedURL string) (*entity.DocumentRequest, error) {
	return s.transition(ctx, id, domainwf.TriggerMarkReady, appwf.Action{Actor: actor, GeneratedURL: generatedURL})
}

func (s *requestServiceImpl) Complete(ctx context.Context, id int64, actor string) (*entity.DocumentRequest, error) {
	return s.transition(ctx, id, domainwf.TriggerComplete, appwf.Action{Actor: actor})
}

// transition fires the trigger through the engine, invalidates the stats
// cache and sends resident notifications where the new status calls for one
func (s *requestServiceImpl) transition(ctx context.Context, id int64, trigger domainwf.Trigger, action appwf.Action) (*entity.DocumentRequest, error) {
	req, err := s.engine.Transition(ctx, id, trigger, action)
	if err != nil {
		return nil, err
	}

	s.statsCache.Invalidate()
	s.notify(ctx, req)

	return req, nil
}

// notify sends the resident an SMS for statuses they need to act on.
// Failures are logged; they never fail the transition.
func (s *requestServiceImpl) notify(ctx context.Context, req *entity.DocumentRequest) {
	var message string
	switch req.Status {
	case entity.StatusReadyForPickup:
		message = fmt.Sprintf("Your document request %s is ready for pickup at the barangay hall.", req.TrackingNumber)
	case entity.StatusRejected:
		message = fmt.Sprintf("Your document request %s was rejected. Reason: %s", req.TrackingNumber, req.RejectionReason)
	default:
		return
	}

	if err := s.smsSender.Send(ctx, req.ResidentContact, message); err != nil {
		s.logger.Warn("Failed to send resident notification",
			"request_id", req.ID,
			"status", req.Status,
			"error", err.Error())
	}
}

// PreviewDocument returns the field map the generator would render
func (s *requestServiceImpl) PreviewDocument(ctx context.Context, id int64) (map[string]string, error) {
	req, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.generator.Preview(ctx, req)
}

// UploadPaymentProof stores a GCash payment proof. Only online-payment
// requests with unverified payment accept one.
func (s *requestServiceImpl) UploadPaymentProof(ctx context.Context, id int64, input UploadInput) (string, error) {
	req, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	if domainwf.Classify(req) != domainwf.CategoryGCashOnline || req.IsPaymentVerified() || req.IsTerminal() {
		return "", ErrUploadNotAllowed
	}

	path, err := s.storeFile(ctx, req, s.folders.PaymentProofPath, input)
	if err != nil {
		return "", err
	}

	if err := s.requestRepo.SetPaymentProof(ctx, id, path, input.ReferenceNumber); err != nil {
		return "", err
	}

	s.logger.Info("Payment proof uploaded",
		"request_id", id,
		"path", path)
	return path, nil
}

// UploadSupportingDocument stores a supporting document for an unreviewed request
func (s *requestServiceImpl) UploadSupportingDocument(ctx context.Context, id int64, input UploadInput) (string, error) {
	req, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	if req.IsReviewed() || req.IsTerminal() {
		return "", ErrUploadNotAllowed
	}

	path, err := s.storeFile(ctx, req, s.folders.DocumentPath, input)
	if err != nil {
		return "", err
	}

	if err := s.requestRepo.AddSupportingDocument(ctx, id, path); err != nil {
		return "", err
	}

	s.logger.Info("Supporting document uploaded",
		"request_id", id,
		"path", path)
	return path, nil
}

// storeFile validates and persists an upload, returning its storage path
func (s *requestServiceImpl) storeFile(ctx context.Context, req *entity.DocumentRequest, pathFor func(int64, string) string, input UploadInput) (string, error) {
	if int64(len(input.Content)) > s.maxUploadSize {
		return "", ErrFileTooLarge
	}
	if !upload.AllowedContentType(input.ContentType) {
		return "", ErrUnsupportedFileType
	}

	if upload.IsPDF(input.Content) {
		if _, err := s.pdfInspector.Inspect(ctx, input.Content); err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnsupportedFileType, err)
		}
	}

	ext := strings.ToLower(filepath.Ext(input.FileName))
	path := pathFor(req.ID, uuid.New().String()+ext)

	if err := s.fileStorage.Save(ctx, path, input.Content); err != nil {
		return "", err
	}
	return path, nil
}

// BulkDelete deletes the given requests one by one. Records not in a terminal
// status are skipped with an error; one failure does not stop the loop, but a
// cancelled context does.
func (s *requestServiceImpl) BulkDelete(ctx context.Context, ids []int64) []BulkDeleteResult {
	results := make([]BulkDeleteResult, 0, len(ids))
	deleted := 0

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			results = append(results, BulkDeleteResult{ID: id, Error: err.Error()})
			continue
		}

		if err := s.deleteOne(ctx, id); err != nil {
			results = append(results, BulkDeleteResult{ID: id, Error: err.Error()})
			continue
		}

		deleted++
		results = append(results, BulkDeleteResult{ID: id, Deleted: true})
	}

	if deleted > 0 {
		s.statsCache.Invalidate()
	}

	s.logger.Info("Bulk delete finished",
		"requested", len(ids),
		"deleted", deleted)

	return results
}

func (s *requestServiceImpl) deleteOne(ctx context.Context, id int64) error {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if req == nil {
		return appwf.ErrRequestNotFound
	}
	if !req.IsTerminal() {
		return ErrNotTerminal
	}

	if err := s.requestRepo.Delete(ctx, id); err != nil {
		return err
	}

	// Stored files go with the record; a purge failure only leaves orphans
	if err := s.folders.Purge(id); err != nil {
		s.logger.Warn("Failed to purge request files",
			"request_id", id,
			"error", err.Error())
	}

	return nil
}

// Stats returns per-status request counts from the cache
func (s *requestServiceImpl) Stats(ctx context.Context) (map[string]int, error) {
	return s.statsCache.Get(ctx)
}
