package domain

import "time"

// DocumentID addresses a stored document. The service currently exposes a
// single well-known document, but storage is keyed from the start.
type DocumentID string

// DefaultDocumentID is the document served when a request names none.
const DefaultDocumentID DocumentID = "main"

// DefaultMaxContentBytes caps the size of a stored document body.
const DefaultMaxContentBytes = 1 << 20

const maxDocumentIDLen = 128

// Document is the authoritative copy of a shared text.
type Document struct {
	ID      DocumentID `json:"id" bson:"_id"`
	Content string     `json:"content" bson:"content"`
	// Version increases by one on every successful replace. Zero means the
	// document has never been written.
	Version   int64     `json:"version" bson:"version"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Normalize maps an empty identifier onto the default document.
func (id DocumentID) Normalize() DocumentID {
	if id == "" {
		return DefaultDocumentID
	}
	return id
}

// Validate rejects identifiers that cannot be used as a storage key.
func (id DocumentID) Validate() error {
	if len(id) > maxDocumentIDLen {
		return ErrInvalidDocument
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return ErrInvalidDocument
		}
	}
	return nil
}

// EmptyDocument is what a read returns for a document that was never written.
func EmptyDocument(id DocumentID) *Document {
	return &Document{ID: id.Normalize()}
}

// MatchesVersion reports whether a conditional replace guarded by expected may
// proceed. A nil expectation always matches (last writer wins).
func (d *Document) MatchesVersion(expected *int64) bool {
	if expected == nil {
		return true
	}
	var current int64
	if d != nil {
		current = d.Version
	}
	return current == *expected
}
