package storage

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jbdelacruz/barangay-portal/internal/application/port"
)

// FolderManager owns the per-request folder layout under the upload base
// directory:
//
//	requests/{id}/payment-proof/
//	requests/{id}/documents/
//	requests/{id}/generated/
//
// Paths it returns are relative to the base directory, matching what
// LocalFileStorage expects.
type FolderManager struct {
	baseDir string
	logger  *zap.Logger
}

var _ port.FolderLayout = (*FolderManager)(nil)

// NewFolderManager creates a new FolderManager
func NewFolderManager(baseDir string, logger *zap.Logger) *FolderManager {
	return &FolderManager{
		baseDir: baseDir,
		logger:  logger,
	}
}

// PaymentProofPath returns the storage path for a payment proof file
func (m *FolderManager) PaymentProofPath(requestID int64, objectName string) string {
	return path.Join(m.requestFolder(requestID), "payment-proof", objectName)
}

// DocumentPath returns the storage path for a supporting document
func (m *FolderManager) DocumentPath(requestID int64, objectName string) string {
	return path.Join(m.requestFolder(requestID), "documents", objectName)
}

// GeneratedPath returns the storage path for a generated document
func (m *FolderManager) GeneratedPath(requestID int64, objectName string) string {
	return path.Join(m.requestFolder(requestID), "generated", objectName)
}

// Purge removes everything stored for a request. Missing folders are fine;
// purge runs after a record delete and must be idempotent.
func (m *FolderManager) Purge(requestID int64) error {
	folderPath := filepath.Join(m.baseDir, m.requestFolder(requestID))

	if _, err := os.Stat(folderPath); os.IsNotExist(err) {
		return nil
	}

	if err := os.RemoveAll(folderPath); err != nil {
		m.logger.Error("Failed to purge request folder",
			zap.Int64("request_id", requestID),
			zap.String("folder_path", folderPath),
			zap.Error(err))
		return fmt.Errorf("failed to purge folder: %w", err)
	}

	m.logger.Debug("Purged request folder",
		zap.Int64("request_id", requestID),
		zap.String("folder_path", folderPath))

	return nil
}

func (m *FolderManager) requestFolder(requestID int64) string {
	return path.Join("requests", fmt.Sprintf("%d", requestID))
}
