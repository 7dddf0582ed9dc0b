package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/jbdelacruz/barangay-portal/internal/application/port"
	"github.com/jbdelacruz/barangay-portal/internal/domain/entity"
	"github.com/jbdelacruz/barangay-portal/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository over SQLite. The table
// is append-only; there are no update or delete operations.
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new status history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Append records a status change
func (r *HistoryRepository) Append(ctx context.Context, entry *entity.StatusHistoryEntry) error {
	query := `
		INSERT INTO request_status_history (
			request_id, previous_status, new_status, action_type, changed_by, reason, changed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		entry.RequestID,
		entry.PreviousStatus,
		entry.NewStatus,
		entry.ActionType,
		entry.ChangedBy,
		entry.Reason,
		entry.ChangedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append status history",
			zap.Int64("request_id", entry.RequestID), zap.Error(err))
		return fmt.Errorf("failed to append status history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	return nil
}

// GetByRequestID returns the history of a request in chronological order
func (r *HistoryRepository) GetByRequestID(ctx context.Context, requestID int64) ([]*entity.StatusHistoryEntry, error) {
	query := `
		SELECT id, request_id, previous_status, new_status, action_type, changed_by, reason, changed_at
		FROM request_status_history
		WHERE request_id = ?
		ORDER BY changed_at ASC, id ASC
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to get status history",
			zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get status history: %w", err)
	}
	defer rows.Close()

	var entries []*entity.StatusHistoryEntry
	for rows.Next() {
		var entry entity.StatusHistoryEntry
		var reason sql.NullString
		if err := rows.Scan(
			&entry.ID,
			&entry.RequestID,
			&entry.PreviousStatus,
			&entry.NewStatus,
			&entry.ActionType,
			&entry.ChangedBy,
			&reason,
			&entry.ChangedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entry.Reason = reason.String
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
