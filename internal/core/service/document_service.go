package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/collabedit/docsync/internal/core/domain"
	"github.com/collabedit/docsync/internal/core/ports"
)

// DocumentService is the authoritative document store. It adds no ordering
// across writers: the replace that commits last wins.
type DocumentService struct {
	repo            ports.DocumentRepository
	maxContentBytes int
	logger          zerolog.Logger
}

func NewDocumentService(repo ports.DocumentRepository, maxContentBytes int, logger zerolog.Logger) *DocumentService {
	if maxContentBytes <= 0 {
		maxContentBytes = domain.DefaultMaxContentBytes
	}
	return &DocumentService{repo: repo, maxContentBytes: maxContentBytes, logger: logger}
}

// Read returns the current content. A document that was never written reads
// as empty content at version 0.
func (s *DocumentService) Read(ctx context.Context, id domain.DocumentID) (*domain.Document, error) {
	id = id.Normalize()
	if err := id.Validate(); err != nil {
		return nil, err
	}

	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return domain.EmptyDocument(id), nil
		}
		return nil, storageError("read document", err)
	}
	return doc, nil
}

// Replace overwrites the stored content. With a nil expectedVersion the write
// is unconditional.
func (s *DocumentService) Replace(ctx context.Context, id domain.DocumentID, content string, expectedVersion *int64) (*domain.Document, error) {
	id = id.Normalize()
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if len(content) > s.maxContentBytes {
		return nil, fmt.Errorf("replace document: %w (%d > %d bytes)", domain.ErrContentTooLarge, len(content), s.maxContentBytes)
	}

	doc, err := s.repo.Put(ctx, id, content, expectedVersion)
	if err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			evt := s.logger.Info().Str("document", string(id))
			if expectedVersion != nil {
				evt = evt.Int64("expected_version", *expectedVersion)
			}
			evt.Msg("conditional replace rejected")
			return nil, fmt.Errorf("replace document: %w", err)
		}
		return nil, storageError("replace document", err)
	}

	s.logger.Debug().
		Str("document", string(id)).
		Int64("version", doc.Version).
		Int("bytes", len(content)).
		Msg("document replaced")

	return doc, nil
}

// storageError keeps domain errors intact and tags everything else as a
// storage outage.
func storageError(op string, err error) error {
	if errors.Is(err, domain.ErrStorageUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrStorageUnavailable, err)
}
