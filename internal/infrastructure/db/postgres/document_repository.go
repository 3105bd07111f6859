package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/collabedit/docsync/internal/core/domain"
)

type DocumentRepository struct {
	pool *pgxpool.Pool
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

func (r *DocumentRepository) Get(ctx context.Context, id domain.DocumentID) (*domain.Document, error) {
	d := domain.Document{ID: id}
	err := r.pool.QueryRow(ctx,
		`SELECT content, version, updated_at FROM documents WHERE id = $1`, string(id),
	).Scan(&d.Content, &d.Version, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Put upserts in one statement. The conditional form adds a WHERE clause to
// the conflict update so a stale version updates no row.
func (r *DocumentRepository) Put(ctx context.Context, id domain.DocumentID, content string, expectedVersion *int64) (*domain.Document, error) {
	d := domain.Document{ID: id, Content: content}

	var row pgx.Row
	switch {
	case expectedVersion == nil:
		row = r.pool.QueryRow(ctx, `
			INSERT INTO documents (id, content, version, updated_at)
			VALUES ($1, $2, 1, NOW())
			ON CONFLICT (id)
			DO UPDATE SET content = EXCLUDED.content, version = documents.version + 1, updated_at = NOW()
			RETURNING version, updated_at`, string(id), content)
	case *expectedVersion == 0:
		row = r.pool.QueryRow(ctx, `
			INSERT INTO documents (id, content, version, updated_at)
			VALUES ($1, $2, 1, NOW())
			ON CONFLICT (id) DO NOTHING
			RETURNING version, updated_at`, string(id), content)
	default:
		row = r.pool.QueryRow(ctx, `
			UPDATE documents SET content = $2, version = version + 1, updated_at = NOW()
			WHERE id = $1 AND version = $3
			RETURNING version, updated_at`, string(id), content, *expectedVersion)
	}

	if err := row.Scan(&d.Version, &d.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVersionConflict
		}
		return nil, err
	}
	d.UpdatedAt = d.UpdatedAt.UTC()
	return &d, nil
}

func (r *DocumentRepository) Name() string { return "postgres" }

func (r *DocumentRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
