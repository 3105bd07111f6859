package domain

import "errors"

var (
	// ErrStorageUnavailable wraps any failure of the backing store.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrDocumentNotFound   = errors.New("document not found")
	// ErrVersionConflict is returned by a conditional replace whose expected
	// version no longer matches the stored one.
	ErrVersionConflict = errors.New("document version conflict")
	ErrContentTooLarge = errors.New("document content too large")
	ErrInvalidDocument = errors.New("invalid document id")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
)
