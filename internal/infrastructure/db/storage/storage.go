// Package storage opens the configured backend from a DSN and hands back the
// repositories the core services depend on.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/rs/zerolog"

	"github.com/collabedit/docsync/internal/core/ports"
	"github.com/collabedit/docsync/internal/infrastructure/db/bolt"
	"github.com/collabedit/docsync/internal/infrastructure/db/memory"
	"github.com/collabedit/docsync/internal/infrastructure/db/mongo"
	"github.com/collabedit/docsync/internal/infrastructure/db/postgres"
	"github.com/collabedit/docsync/internal/infrastructure/db/redis"
)

var ErrUnsupportedScheme = errors.New("unsupported storage scheme")

type Options struct {
	DSN string
	// Database is the Mongo database used when the DSN names none.
	Database string
	// Timeout bounds each repository call. Zero disables the bound.
	Timeout        time.Duration
	ConnectRetries uint64
	Logger         zerolog.Logger
}

// Backend is an opened store. Close releases its connections.
type Backend struct {
	Documents ports.DocumentRepository
	Users     ports.UserRepository
	Health    []ports.HealthChecker
	closeFn   func(context.Context) error
}

func (b *Backend) Close(ctx context.Context) error {
	if b == nil || b.closeFn == nil {
		return nil
	}
	return b.closeFn(ctx)
}

// Open parses the DSN scheme and connects, retrying with exponential backoff.
func Open(ctx context.Context, opts Options) (*Backend, error) {
	dsn := strings.TrimSpace(opts.DSN)
	if dsn == "" {
		dsn = "memory://"
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage dsn: %w", err)
	}
	scheme := strings.ToLower(parsed.Scheme)

	var backend *Backend
	connect := func() error {
		b, err := openScheme(ctx, scheme, parsed, dsn, opts)
		if err != nil {
			return err
		}
		backend = b
		return nil
	}

	// Unknown schemes and bad paths are not worth retrying.
	if !knownScheme(scheme) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), opts.ConnectRetries),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		opts.Logger.Warn().Err(err).Str("scheme", scheme).Dur("retry_in", wait).Msg("storage connect failed")
	}
	if err := backoff.RetryNotify(connect, policy, notify); err != nil {
		return nil, err
	}

	if opts.Timeout > 0 {
		backend.Documents = &timeoutDocuments{next: backend.Documents, timeout: opts.Timeout}
		backend.Users = &timeoutUsers{next: backend.Users, timeout: opts.Timeout}
	}
	opts.Logger.Info().Str("scheme", scheme).Msg("storage backend ready")
	return backend, nil
}

func knownScheme(scheme string) bool {
	switch scheme {
	case "memory", "mem", "bolt", "file", "mongodb", "mongodb+srv", "postgres", "postgresql", "redis", "rediss":
		return true
	}
	return false
}

func openScheme(ctx context.Context, scheme string, parsed *url.URL, dsn string, opts Options) (*Backend, error) {
	switch scheme {
	case "memory", "mem":
		docs := memory.NewDocumentRepository()
		return &Backend{
			Documents: docs,
			Users:     memory.NewUserRepository(),
			Health:    []ports.HealthChecker{docs},
		}, nil

	case "bolt", "file":
		path, err := dsnPath(parsed)
		if err != nil {
			return nil, err
		}
		db, err := bolt.Open(path, opts.Timeout)
		if err != nil {
			return nil, err
		}
		docs := bolt.NewDocumentRepository(db)
		return &Backend{
			Documents: docs,
			Users:     bolt.NewUserRepository(db),
			Health:    []ports.HealthChecker{docs},
			closeFn:   func(context.Context) error { return db.Close() },
		}, nil

	case "mongodb", "mongodb+srv":
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: dsn, Database: opts.Database, Timeout: opts.Timeout})
		if err != nil {
			return nil, err
		}
		users := mongo.NewUserRepository(db)
		if err := users.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		docs := mongo.NewDocumentRepository(db)
		return &Backend{
			Documents: docs,
			Users:     users,
			Health:    []ports.HealthChecker{docs},
			closeFn:   client.Disconnect,
		}, nil

	case "postgres", "postgresql":
		pool, err := postgres.Connect(ctx, dsn, opts.Timeout)
		if err != nil {
			return nil, err
		}
		docs := postgres.NewDocumentRepository(pool)
		return &Backend{
			Documents: docs,
			Users:     postgres.NewUserRepository(pool),
			Health:    []ports.HealthChecker{docs},
			closeFn: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil

	case "redis", "rediss":
		client, err := redis.Connect(ctx, redis.Config{URL: dsn, Timeout: opts.Timeout})
		if err != nil {
			return nil, err
		}
		docs := redis.NewDocumentRepository(client)
		return &Backend{
			Documents: docs,
			Users:     redis.NewUserRepository(client),
			Health:    []ports.HealthChecker{docs},
			closeFn:   func(context.Context) error { return client.Close() },
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
}

// dsnPath accepts bolt:///abs/path.db, bolt://relative.db and file:path.db.
func dsnPath(parsed *url.URL) (string, error) {
	path := parsed.Path
	if parsed.Host != "" {
		path = parsed.Host + path
	}
	if path == "" {
		path = parsed.Opaque
	}
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("storage dsn: missing file path")
	}
	return path, nil
}
