// Package bolt stores documents and users in a single bbolt file, giving a
// durable backend without an external database.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/collabedit/docsync/internal/core/domain"
)

const (
	defaultTimeout = time.Second
	fileMode       = 0o600
)

var (
	documentsBucket = []byte("documents")
	usersBucket     = []byte("users")
)

// Open creates (or reopens) the database file and its buckets. Timeout bounds
// how long Open waits for the file lock held by another process.
func Open(path string, timeout time.Duration) (*bbolt.DB, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("bolt mkdir: %w", err)
		}
	}

	db, err := bbolt.Open(path, fileMode, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("bolt open: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{documentsBucket, usersBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bolt init buckets: %w", err)
	}
	return db, nil
}

type DocumentRepository struct {
	db *bbolt.DB
}

func NewDocumentRepository(db *bbolt.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Get(_ context.Context, id domain.DocumentID) (*domain.Document, error) {
	var doc *domain.Document
	err := r.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(documentsBucket).Get([]byte(id))
		if raw == nil {
			return domain.ErrDocumentNotFound
		}
		doc = &domain.Document{}
		return json.Unmarshal(raw, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Put runs read-compare-write in one read-write transaction; bbolt allows a
// single writer at a time, so the version bump is atomic.
func (r *DocumentRepository) Put(_ context.Context, id domain.DocumentID, content string, expectedVersion *int64) (*domain.Document, error) {
	var next domain.Document
	err := r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(documentsBucket)

		var current *domain.Document
		if raw := b.Get([]byte(id)); raw != nil {
			current = &domain.Document{}
			if err := json.Unmarshal(raw, current); err != nil {
				return fmt.Errorf("decode document %s: %w", id, err)
			}
		}
		if !current.MatchesVersion(expectedVersion) {
			return domain.ErrVersionConflict
		}

		next = domain.Document{ID: id, Content: content, Version: 1, UpdatedAt: time.Now().UTC()}
		if current != nil {
			next.Version = current.Version + 1
		}
		payload, err := json.Marshal(next)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), payload)
	})
	if err != nil {
		return nil, err
	}
	return &next, nil
}

func (r *DocumentRepository) Name() string { return "bolt" }

// Ping opens a read transaction; it fails once the database has been closed.
func (r *DocumentRepository) Ping(context.Context) error {
	return r.db.View(func(*bbolt.Tx) error { return nil })
}

type boltUser struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	CreatedAt    int64  `json:"created_at"`
}

type UserRepository struct {
	db *bbolt.DB
}

func NewUserRepository(db *bbolt.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	var bu boltUser
	err := r.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(usersBucket).Get([]byte(username))
		if raw == nil {
			return domain.ErrUserNotFound
		}
		return json.Unmarshal(raw, &bu)
	})
	if err != nil {
		return nil, err
	}
	return toDomainUser(bu), nil
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	bu := boltUser{
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt.Unix(),
	}
	err := r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(usersBucket)
		if b.Get([]byte(user.Username)) != nil {
			return domain.ErrUserExists
		}
		payload, err := json.Marshal(bu)
		if err != nil {
			return err
		}
		return b.Put([]byte(user.Username), payload)
	})
	if err != nil {
		return nil, err
	}
	return toDomainUser(bu), nil
}

func toDomainUser(bu boltUser) *domain.User {
	u := &domain.User{
		ID:           bu.Username,
		Username:     bu.Username,
		PasswordHash: bu.PasswordHash,
	}
	if bu.CreatedAt != 0 {
		u.CreatedAt = time.Unix(bu.CreatedAt, 0).UTC()
	}
	return u
}
