package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jbdelacruz/barangay-portal/internal/application/port"
	"github.com/jbdelacruz/barangay-portal/internal/domain/entity"
	"github.com/jbdelacruz/barangay-portal/internal/infrastructure/persistence/sqlite"
)

// RequestRepository implements port.RequestRepository over SQLite
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

const requestColumns = `
	id, tracking_number, resident_name, resident_contact, resident_address,
	purpose, document_type, amount, payment_method, status,
	payment_proof_url, payment_reference_number, payment_verified_at, payment_verified_by,
	supporting_documents, reviewed_at, reviewed_by, rejection_reason,
	generated_document_url, generated_at, generated_by,
	submitted_at, updated_at
`

// Create inserts a new document request
func (r *RequestRepository) Create(ctx context.Context, req *entity.DocumentRequest) error {
	docs, err := json.Marshal(req.SupportingDocuments)
	if err != nil {
		return fmt.Errorf("failed to marshal supporting documents: %w", err)
	}

	query := `
		INSERT INTO document_requests (
			tracking_number, resident_name, resident_contact, resident_address,
			purpose, document_type, amount, payment_method, status,
			payment_proof_url, payment_reference_number, supporting_documents,
			submitted_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		req.TrackingNumber,
		req.ResidentName,
		req.ResidentContact,
		req.ResidentAddress,
		req.Purpose,
		req.DocumentType,
		req.Amount.String(),
		req.PaymentMethod,
		req.Status,
		req.PaymentProofURL,
		req.PaymentReferenceNumber,
		string(docs),
		req.SubmittedAt,
		req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create request", zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	req.ID = id
	return nil
}

// GetByID retrieves a request by ID. Returns (nil, nil) when not found.
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*entity.DocumentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM document_requests WHERE id = ?`

	row := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id)
	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get request by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	return req, nil
}

// GetByTrackingNumber retrieves a request by its tracking number
func (r *RequestRepository) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*entity.DocumentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM document_requests WHERE tracking_number = ?`

	row := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, trackingNumber)
	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get request by tracking number",
			zap.String("tracking_number", trackingNumber), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	return req, nil
}

// List retrieves requests matching the filter, most recent first
func (r *RequestRepository) List(ctx context.Context, filter port.RequestFilter) ([]*entity.DocumentRequest, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.PaymentMethod != "" {
		conditions = append(conditions, "payment_method = ?")
		args = append(args, filter.PaymentMethod)
	}
	if filter.DocumentType != "" {
		conditions = append(conditions, "document_type = ?")
		args = append(args, filter.DocumentType)
	}
	if filter.Search != "" {
		conditions = append(conditions, "(tracking_number LIKE ? OR resident_name LIKE ?)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	if filter.From != nil {
		conditions = append(conditions, "submitted_at >= ?")
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, "submitted_at < ?")
		args = append(args, *filter.To)
	}

	query := `SELECT ` + requestColumns + ` FROM document_requests`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY submitted_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.DocumentRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

// UpdateStatus applies the status update only if the stored status still
// matches expectedStatus. A concurrent transition makes the predicate fail
// and the caller gets port.ErrConflict instead of a silent overwrite.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id int64, expectedStatus string, update port.StatusUpdate) error {
	sets := []string{"status = ?", "updated_at = CURRENT_TIMESTAMP"}
	args := []interface{}{update.NewStatus}

	if update.PaymentVerifiedAt != nil {
		sets = append(sets, "payment_verified_at = ?", "payment_verified_by = ?")
		args = append(args, *update.PaymentVerifiedAt, update.PaymentVerifiedBy)
	}
	if update.ReviewedAt != nil {
		sets = append(sets, "reviewed_at = ?", "reviewed_by = ?")
		args = append(args, *update.ReviewedAt, update.ReviewedBy)
	}
	if update.RejectionReason != "" {
		sets = append(sets, "rejection_reason = ?")
		args = append(args, update.RejectionReason)
	}
	if update.GeneratedAt != nil {
		sets = append(sets, "generated_document_url = ?", "generated_at = ?", "generated_by = ?")
		args = append(args, update.GeneratedURL, *update.GeneratedAt, update.GeneratedBy)
	}

	query := fmt.Sprintf(
		"UPDATE document_requests SET %s WHERE id = ? AND status = ?",
		strings.Join(sets, ", "),
	)
	args = append(args, id, expectedStatus)

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update request status", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		r.logger.Warn("Concurrent status change detected",
			zap.Int64("id", id),
			zap.String("expected_status", expectedStatus))
		return port.ErrConflict
	}

	return nil
}

// SetPaymentProof records the uploaded payment proof and reference number
func (r *RequestRepository) SetPaymentProof(ctx context.Context, id int64, proofURL, referenceNumber string) error {
	query := `
		UPDATE document_requests
		SET payment_proof_url = ?, payment_reference_number = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, proofURL, referenceNumber, id); err != nil {
		r.logger.Error("Failed to set payment proof", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to set payment proof: %w", err)
	}
	return nil
}

// AddSupportingDocument appends a document URL to the request's ordered list.
// The append happens inside the UPDATE so concurrent uploads cannot lose
// each other's entries.
func (r *RequestRepository) AddSupportingDocument(ctx context.Context, id int64, docURL string) error {
	query := `
		UPDATE document_requests
		SET supporting_documents = json_insert(supporting_documents, '$[#]', ?),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, docURL, id)
	if err != nil {
		r.logger.Error("Failed to add supporting document", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to add supporting document: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("request not found: %d", id)
	}
	return nil
}

// CountByStatus returns the number of requests per status
func (r *RequestRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx,
		"SELECT status, COUNT(*) FROM document_requests GROUP BY status")
	if err != nil {
		r.logger.Error("Failed to count requests by status", zap.Error(err))
		return nil, fmt.Errorf("failed to count requests: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

// Delete removes a request record
func (r *RequestRepository) Delete(ctx context.Context, id int64) error {
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		"DELETE FROM document_requests WHERE id = ?", id)
	if err != nil {
		r.logger.Error("Failed to delete request", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("request not found: %d", id)
	}

	return nil
}

// scanner covers *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(s scanner) (*entity.DocumentRequest, error) {
	var req entity.DocumentRequest
	var amount string
	var docs string
	var paymentVerifiedAt, reviewedAt, generatedAt sql.NullTime
	var proofURL, refNumber, verifiedBy, reviewedBy, rejectionReason sql.NullString
	var generatedURL, generatedBy sql.NullString

	err := s.Scan(
		&req.ID,
		&req.TrackingNumber,
		&req.ResidentName,
		&req.ResidentContact,
		&req.ResidentAddress,
		&req.Purpose,
		&req.DocumentType,
		&amount,
		&req.PaymentMethod,
		&req.Status,
		&proofURL,
		&refNumber,
		&paymentVerifiedAt,
		&verifiedBy,
		&docs,
		&reviewedAt,
		&reviewedBy,
		&rejectionReason,
		&generatedURL,
		&generatedAt,
		&generatedBy,
		&req.SubmittedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	req.Amount = parsed

	if docs != "" {
		if err := json.Unmarshal([]byte(docs), &req.SupportingDocuments); err != nil {
			return nil, fmt.Errorf("invalid supporting documents list: %w", err)
		}
	}

	req.PaymentProofURL = proofURL.String
	req.PaymentReferenceNumber = refNumber.String
	req.PaymentVerifiedBy = verifiedBy.String
	req.ReviewedBy = reviewedBy.String
	req.RejectionReason = rejectionReason.String
	req.GeneratedDocumentURL = generatedURL.String
	req.GeneratedBy = generatedBy.String

	if paymentVerifiedAt.Valid {
		req.PaymentVerifiedAt = &paymentVerifiedAt.Time
	}
	if reviewedAt.Valid {
		req.ReviewedAt = &reviewedAt.Time
	}
	if generatedAt.Valid {
		req.GeneratedAt = &generatedAt.Time
	}

	return &req, nil
}
