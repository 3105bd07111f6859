package storage

import (
	"context"
	"time"

	"github.com/collabedit/docsync/internal/core/domain"
	"github.com/collabedit/docsync/internal/core/ports"
)

type timeoutDocuments struct {
	next    ports.DocumentRepository
	timeout time.Duration
}

func (t *timeoutDocuments) Get(ctx context.Context, id domain.DocumentID) (*domain.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Get(ctx, id)
}

func (t *timeoutDocuments) Put(ctx context.Context, id domain.DocumentID, content string, expectedVersion *int64) (*domain.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Put(ctx, id, content, expectedVersion)
}

type timeoutUsers struct {
	next    ports.UserRepository
	timeout time.Duration
}

func (t *timeoutUsers) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.FindByUsername(ctx, username)
}

func (t *timeoutUsers) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Create(ctx, user)
}
