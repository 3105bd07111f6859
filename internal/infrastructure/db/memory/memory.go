// Package memory keeps documents and users in process memory. It is the
// default backend and the one used by tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/collabedit/docsync/internal/core/domain"
)

type DocumentRepository struct {
	mu   sync.Mutex
	docs map[domain.DocumentID]domain.Document
}

func NewDocumentRepository() *DocumentRepository {
	return &DocumentRepository{docs: make(map[domain.DocumentID]domain.Document)}
}

func (r *DocumentRepository) Get(_ context.Context, id domain.DocumentID) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return &doc, nil
}

func (r *DocumentRepository) Put(_ context.Context, id domain.DocumentID, content string, expectedVersion *int64) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.docs[id]
	var cur *domain.Document
	if ok {
		cur = &current
	}
	if !cur.MatchesVersion(expectedVersion) {
		return nil, domain.ErrVersionConflict
	}

	next := domain.Document{
		ID:        id,
		Content:   content,
		Version:   current.Version + 1,
		UpdatedAt: time.Now().UTC(),
	}
	r.docs[id] = next
	return &next, nil
}

func (r *DocumentRepository) Name() string { return "memory" }

func (r *DocumentRepository) Ping(context.Context) error { return nil }

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]domain.User)}
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.Username]; exists {
		return nil, domain.ErrUserExists
	}
	stored := *user
	if stored.ID == "" {
		stored.ID = stored.Username
	}
	r.users[stored.Username] = stored
	return &stored, nil
}
