package ports

import (
	"context"

	"github.com/collabedit/docsync/internal/core/domain"
)

// UserRepository defines persistence for the credential registry.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}
