package ports

import (
	"context"

	"github.com/collabedit/docsync/internal/core/domain"
)

// DocumentRepository is a keyed cell holding one document body per id.
type DocumentRepository interface {
	// Get returns the stored document or domain.ErrDocumentNotFound.
	Get(ctx context.Context, id domain.DocumentID) (*domain.Document, error)
	// Put overwrites the content and bumps the version atomically. When
	// expectedVersion is non-nil the write only happens if the stored version
	// still equals it; otherwise domain.ErrVersionConflict is returned.
	Put(ctx context.Context, id domain.DocumentID, content string, expectedVersion *int64) (*domain.Document, error)
}

// HealthChecker is implemented by every storage backend for readiness probes.
type HealthChecker interface {
	Name() string
	Ping(ctx context.Context) error
}
