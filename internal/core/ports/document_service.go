package ports

import (
	"context"

	"github.com/collabedit/docsync/internal/core/domain"
)

// DocumentService reads and replaces shared documents. Replace is last writer
// wins unless an expected version is supplied.
type DocumentService interface {
	Read(ctx context.Context, id domain.DocumentID) (*domain.Document, error)
	Replace(ctx context.Context, id domain.DocumentID, content string, expectedVersion *int64) (*domain.Document, error)
}
