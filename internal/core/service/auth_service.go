package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/collabedit/docsync/internal/core/domain"
	"github.com/collabedit/docsync/internal/core/ports"
)

// dummyHash is compared against when the username is unknown so a rejected
// login costs the same bcrypt work either way.
var dummyHash = mustHash("docsync-timing-equalizer")

// AuthService implements registry seeding and credential verification.
type AuthService struct {
	repo   ports.UserRepository
	cost   int
	logger zerolog.Logger
}

func NewAuthService(repo ports.UserRepository, cost int, logger zerolog.Logger) *AuthService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{repo: repo, cost: cost, logger: logger}
}

// Register stores a new user. Usernames are stored exactly as given, matching
// Verify. A password that is already a bcrypt hash is
// stored as-is so operators can seed the registry without plaintext.
func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	hash := password
	if _, err := bcrypt.Cost([]byte(password)); err != nil {
		generated, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hash = string(generated)
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, err
		}
		return nil, storageError("register user", err)
	}
	return created, nil
}

// Verify accepts the pair only when a registry entry matches both fields.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Verify(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			s.logger.Info().Str("username", username).Msg("login rejected: unknown user")
			return "", domain.ErrInvalidCredentials
		}
		return "", storageError("verify credentials", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.logger.Info().Str("username", username).Msg("login rejected: password mismatch")
		return "", domain.ErrInvalidCredentials
	}

	return user.Username, nil
}

// SeedUsers registers every "name:password" pair, skipping users that already
// exist.
func (s *AuthService) SeedUsers(ctx context.Context, pairs map[string]string) error {
	for username, password := range pairs {
		if _, err := s.Register(ctx, username, password); err != nil {
			if errors.Is(err, domain.ErrUserExists) {
				s.logger.Debug().Str("username", username).Msg("seed user already registered")
				continue
			}
			return fmt.Errorf("seed user %q: %w", username, err)
		}
		s.logger.Info().Str("username", username).Msg("seed user registered")
	}
	return nil
}

func mustHash(secret string) []byte {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
}
