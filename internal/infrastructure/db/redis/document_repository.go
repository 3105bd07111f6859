package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/collabedit/docsync/internal/core/domain"
)

// maxTxAttempts bounds retries when another writer touches the key between
// WATCH and EXEC.
const maxTxAttempts = 32

const (
	fieldContent   = "content"
	fieldVersion   = "version"
	fieldUpdatedAt = "updated_at"
)

// DocumentRepository keeps each document in a hash at docsync:document:<id>.
type DocumentRepository struct {
	client *redis.Client
}

func NewDocumentRepository(client *redis.Client) *DocumentRepository {
	return &DocumentRepository{client: client}
}

func (r *DocumentRepository) Get(ctx context.Context, id domain.DocumentID) (*domain.Document, error) {
	fields, err := r.client.HGetAll(ctx, documentKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get document: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrDocumentNotFound
	}
	return decodeDocument(id, fields)
}

func (r *DocumentRepository) Put(ctx context.Context, id domain.DocumentID, content string, expectedVersion *int64) (*domain.Document, error) {
	key := documentKey(id)
	var stored *domain.Document

	txf := func(tx *redis.Tx) error {
		var current int64
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(fields) > 0 {
			if current, err = strconv.ParseInt(fields[fieldVersion], 10, 64); err != nil {
				return fmt.Errorf("corrupt version for %s: %w", id, err)
			}
		}
		if expectedVersion != nil && *expectedVersion != current {
			return domain.ErrVersionConflict
		}

		doc := &domain.Document{
			ID:        id,
			Content:   content,
			Version:   current + 1,
			UpdatedAt: time.Now().UTC(),
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				fieldContent, doc.Content,
				fieldVersion, doc.Version,
				fieldUpdatedAt, doc.UpdatedAt.Format(time.RFC3339Nano),
			)
			return nil
		})
		if err == nil {
			stored = doc
		}
		return err
	}

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return stored, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, domain.ErrVersionConflict):
			return nil, err
		default:
			return nil, fmt.Errorf("redis put document: %w", err)
		}
	}
	return nil, fmt.Errorf("redis put document: %w", redis.TxFailedErr)
}

func (r *DocumentRepository) Name() string { return "redis" }

func (r *DocumentRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func documentKey(id domain.DocumentID) string {
	return "docsync:document:" + string(id)
}

func decodeDocument(id domain.DocumentID, fields map[string]string) (*domain.Document, error) {
	version, err := strconv.ParseInt(fields[fieldVersion], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt version for %s: %w", id, err)
	}
	updated, err := time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt])
	if err != nil {
		return nil, fmt.Errorf("corrupt updated_at for %s: %w", id, err)
	}
	return &domain.Document{
		ID:        id,
		Content:   fields[fieldContent],
		Version:   version,
		UpdatedAt: updated,
	}, nil
}
