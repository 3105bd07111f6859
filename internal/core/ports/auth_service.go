package ports

import (
	"context"

	"github.com/collabedit/docsync/internal/core/domain"
)

// CredentialVerifier checks a username/password pair. It issues no token and
// keeps no session; the accepted username is the only result.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (string, error)
}

type AuthService interface {
	CredentialVerifier
	Register(ctx context.Context, username, password string) (*domain.User, error)
}
