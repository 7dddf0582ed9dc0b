package port

import "context"

// FileStorage defines file storage operations for uploaded evidence and
// generated documents
type FileStorage interface {
	Save(ctx context.Context, path string, content []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) bool
	Delete(ctx context.Context, path string) error
	GetFullPath(relativePath string) string
}

// FolderLayout maps a request's files to storage paths and cleans them up
// when the request is deleted
type FolderLayout interface {
	PaymentProofPath(requestID int64, objectName string) string
	DocumentPath(requestID int64, objectName string) string
	GeneratedPath(requestID int64, objectName string) string
	Purge(requestID int64) error
}
