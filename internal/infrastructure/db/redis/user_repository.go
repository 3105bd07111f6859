package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/collabedit/docsync/internal/core/domain"
)

const usersKey = "docsync:users"

// UserRepository stores password hashes in a single hash keyed by username.
type UserRepository struct {
	client *redis.Client
}

func NewUserRepository(client *redis.Client) *UserRepository {
	return &UserRepository{client: client}
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	hash, err := r.client.HGet(ctx, usersKey, username).Result()
	if err == redis.Nil {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis find user: %w", err)
	}
	return &domain.User{ID: username, Username: username, PasswordHash: hash}, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ok, err := r.client.HSetNX(ctx, usersKey, user.Username, user.PasswordHash).Result()
	if err != nil {
		return nil, fmt.Errorf("redis create user: %w", err)
	}
	if !ok {
		return nil, domain.ErrUserExists
	}
	created := *user
	created.ID = user.Username
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	return &created, nil
}
