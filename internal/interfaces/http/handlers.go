// Package http provides the HTTP adapter for the application layer. It is a
// thin layer translating requests to service calls and service errors to the
// HTTP error taxonomy.
package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/jbdelacruz/barangay-portal/internal/application/port"
	"github.com/jbdelacruz/barangay-portal/internal/application/service"
	appwf "github.com/jbdelacruz/barangay-portal/internal/application/workflow"
	"github.com/jbdelacruz/barangay-portal/internal/domain/entity"
	domainwf "github.com/jbdelacruz/barangay-portal/internal/domain/workflow"
	"github.com/jbdelacruz/barangay-portal/pkg/utils"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	requestService service.RequestService
	reportService  service.ReportService
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(requestService service.RequestService, reportService service.ReportService, logger Logger) *Handlers {
	return &Handlers{
		requestService: requestService,
		reportService:  reportService,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SubmitRequest is the resident submission payload
type SubmitRequest struct {
	ResidentName    string `json:"resident_name" binding:"required,min=2,max=120"`
	ResidentContact string `json:"resident_contact" binding:"required"`
	ResidentAddress string `json:"resident_address" binding:"required,max=300"`
	Purpose         string `json:"purpose" binding:"required,max=300"`
	DocumentType    string `json:"document_type" binding:"required,oneof=barangay_clearance certificate_of_indigency certificate_of_residency business_permit certificate_of_good_moral first_time_jobseeker"`
	Amount          string `json:"amount" binding:"required"`
	PaymentMethod   string `json:"payment_method" binding:"required,oneof=online walkin"`
}

// TrackURI binds the public tracking path parameter
type TrackURI struct {
	TrackingNumber string `uri:"trackingNumber" binding:"required,trackingnum"`
}

// ReasonRequest carries the rejection reason
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// BulkDeleteRequest carries the ids for a bulk delete
type BulkDeleteRequest struct {
	IDs []int64 `json:"ids" binding:"required,min=1,max=100"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// Submit handles POST /api/v1/requests
func (h *Handlers) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid submission payload")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.badRequest(c, "invalid amount")
		return
	}

	created, err := h.requestService.Submit(c.Request.Context(), service.SubmitInput{
		ResidentName:    req.ResidentName,
		ResidentContact: req.ResidentContact,
		ResidentAddress: req.ResidentAddress,
		Purpose:         req.Purpose,
		DocumentType:    req.DocumentType,
		Amount:          amount,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: created})
}

// Track handles GET /api/v1/track/:trackingNumber
func (h *Handlers) Track(c *gin.Context) {
	var uri TrackURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.badRequest(c, "invalid tracking number")
		return
	}

	info, err := h.requestService.Track(c.Request.Context(), uri.TrackingNumber)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: info})
}

// List handles GET /api/v1/requests
func (h *Handlers) List(c *gin.Context) {
	filter := port.RequestFilter{
		Status:        c.Query("status"),
		PaymentMethod: c.Query("payment_method"),
		DocumentType:  c.Query("document_type"),
		Search:        c.Query("search"),
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	requests, err := h.requestService.List(c.Request.Context(), filter)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: requests})
}

// Get handles GET /api/v1/requests/:id
func (h *Handlers) Get(c *gin.Context) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	req, err := h.requestService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// History handles GET /api/v1/requests/:id/history
func (h *Handlers) History(c *gin.Context) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	history, err := h.requestService.History(c.Request.Context(), id)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// ViewState handles GET /api/v1/requests/:id/view-state
func (h *Handlers) ViewState(c *gin.Context) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	state, err := h.requestService.GetViewState(c.Request.Context(), id)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: state})
}

// VerifyPayment handles POST /api/v1/requests/:id/verify-payment
func (h *Handlers) VerifyPayment(c *gin.Context) {
	h.transition(c, func(id int64, actor string) (*entity.DocumentRequest, error) {
		return h.requestService.VerifyPayment(c.Request.Context(), id, actor)
	})
}

// RejectPayment handles POST /api/v1/requests/:id/reject-payment
func (h *Handlers) RejectPayment(c *gin.Context) {
	reason, ok := h.reason(c)
	if !ok {
		return
	}
	h.transition(c, func(id int64, actor string) (*entity.DocumentRequest, error) {
		return h.requestService.RejectPayment(c.Request.Context(), id, actor, reason)
	})
}

// ApproveDocuments handles POST /api/v1/requests/:id/approve
func (h *Handlers) ApproveDocuments(c *gin.Context) {
	h.transition(c, func(id int64, actor string) (*entity.DocumentRequest, error) {
		return h.requestService.ApproveDocuments(c.Request.Context(), id, actor)
	})
}

// RejectDocuments handles POST /api/v1/requests/:id/reject
func (h *Handlers) RejectDocuments(c *gin.Context) {
	reason, ok := h.reason(c)
	if !ok {
		return
	}
	h.transition(c, func(id int64, actor string) (*entity.DocumentRequest, error) {
		return h.requestService.RejectDocuments(c.Request.Context(), id, actor, reason)
	})
}

// StartGeneration handles POST /api/v1/requests/:id/generate
func (h *Handlers) StartGeneration(c *gin.Context) {
	h.transition(c, func(id int64, actor string) (*entity.DocumentRequest, error) {
		return h.requestService.StartGeneration(c.Request.Context(), id, actor)
	})
}

// MarkReady handles POST /api/v1/requests/:id/ready
func (h *Handlers) MarkReady(c *gin.Context) {
	var body struct {
		GeneratedURL string `json:"generated_url"`
	}
	// Body is optional; the generation worker normally supplies the URL
	_ = c.ShouldBindJSON(&body)

	h.transition(c, func(id int64, actor string) (*entity.DocumentRequest, error) {
		return h.requestService.MarkReadyForPickup(c.Request.Context(), id, actor, body.GeneratedURL)
	})
}

// Complete handles POST /api/v1/requests/:id/complete
func (h *Handlers) Complete(c *gin.Context) {
	h.transition(c, func(id int64, actor string) (*entity.DocumentRequest, error) {
		return h.requestService.Complete(c.Request.Context(), id, actor)
	})
}

// Preview handles GET /api/v1/requests/:id/preview
func (h *Handlers) Preview(c *gin.Context) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	fields, err := h.requestService.PreviewDocument(c.Request.Context(), id)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: fields})
}

// UploadPaymentProof handles POST /api/v1/requests/:id/payment-proof
func (h *Handlers) UploadPaymentProof(c *gin.Context) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	input, ok := h.uploadInput(c)
	if !ok {
		return
	}
	input.ReferenceNumber = c.PostForm("reference_number")

	path, err := h.requestService.UploadPaymentProof(c.Request.Context(), id, input)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: gin.H{"path": path}})
}

// UploadDocument handles POST /api/v1/requests/:id/documents
func (h *Handlers) UploadDocument(c *gin.Context) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	input, ok := h.uploadInput(c)
	if !ok {
		return
	}

	path, err := h.requestService.UploadSupportingDocument(c.Request.Context(), id, input)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: gin.H{"path": path}})
}

// BulkDelete handles DELETE /api/v1/requests
func (h *Handlers) BulkDelete(c *gin.Context) {
	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid bulk delete payload")
		return
	}

	results := h.requestService.BulkDelete(c.Request.Context(), req.IDs)
	c.JSON(http.StatusOK, Response{Success: true, Data: results})
}

// Stats handles GET /api/v1/stats
func (h *Handlers) Stats(c *gin.Context) {
	counts, err := h.requestService.Stats(c.Request.Context())
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: counts})
}

// ExportReport handles GET /api/v1/reports/requests.xlsx
func (h *Handlers) ExportReport(c *gin.Context) {
	from, err := time.Parse("2006-01-02", c.DefaultQuery("from", time.Now().AddDate(0, -1, 0).Format("2006-01-02")))
	if err != nil {
		h.badRequest(c, "invalid from date")
		return
	}
	to, err := time.Parse("2006-01-02", c.DefaultQuery("to", time.Now().AddDate(0, 0, 1).Format("2006-01-02")))
	if err != nil {
		h.badRequest(c, "invalid to date")
		return
	}

	content, err := h.reportService.ExportRegister(c.Request.Context(), from, to)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="requests.xlsx"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", content)
}

// transition parses the id and actor, runs the transition and writes the result
func (h *Handlers) transition(c *gin.Context, fn func(id int64, actor string) (*entity.DocumentRequest, error)) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}

	req, err := fn(id, h.actor(c))
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

func (h *Handlers) requestID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(c, "invalid request ID")
		return 0, false
	}
	return id, true
}

// actor identifies the staff member performing the action
func (h *Handlers) actor(c *gin.Context) string {
	if actor := c.GetHeader("X-Staff-Name"); actor != "" {
		return actor
	}
	return "staff"
}

func (h *Handlers) reason(c *gin.Context) (string, bool) {
	var body ReasonRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid payload")
		return "", false
	}
	return body.Reason, true
}

// uploadInput reads the multipart file field
func (h *Handlers) uploadInput(c *gin.Context) (service.UploadInput, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.badRequest(c, "missing file")
		return service.UploadInput{}, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.badRequest(c, "unreadable file")
		return service.UploadInput{}, false
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.badRequest(c, "unreadable file")
		return service.UploadInput{}, false
	}

	return service.UploadInput{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     content,
	}, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg, Code: "validation"})
}

// serviceError maps application errors to the HTTP error taxonomy
func (h *Handlers) serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, appwf.ErrRequestNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "request not found", Code: "not_found"})

	case errors.Is(err, port.ErrConflict):
		c.JSON(http.StatusConflict, Response{
			Success: false,
			Error:   "the request changed while you were working; reload and try again",
			Code:    "conflict",
		})

	case errors.Is(err, domainwf.ErrGuardFailed), errors.Is(err, domainwf.ErrInvalidTransition):
		c.JSON(http.StatusConflict, Response{
			Success: false,
			Error:   fmt.Sprintf("action not allowed in the request's current state: %v", err),
			Code:    "guard_violation",
		})

	case errors.Is(err, appwf.ErrReasonRequired):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "rejection reason is required", Code: "validation"})

	case errors.Is(err, service.ErrUploadNotAllowed):
		c.JSON(http.StatusConflict, Response{Success: false, Error: "upload not allowed for this request", Code: "guard_violation"})

	case errors.Is(err, service.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, Response{Success: false, Error: "file exceeds maximum upload size", Code: "validation"})

	case errors.Is(err, service.ErrUnsupportedFileType):
		c.JSON(http.StatusUnsupportedMediaType, Response{Success: false, Error: "unsupported file type", Code: "validation"})

	case errors.Is(err, service.ErrNotTerminal):
		c.JSON(http.StatusConflict, Response{Success: false, Error: "request is not in a terminal status", Code: "guard_violation"})

	case errors.Is(err, utils.ErrInvalidTrackingNumber),
		errors.Is(err, utils.ErrInvalidContactNumber),
		errors.Is(err, utils.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error(), Code: "validation"})

	default:
		h.logger.Error("Unhandled service error", "error", err.Error())
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error", Code: "internal"})
	}
}
