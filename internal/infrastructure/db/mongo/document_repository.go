package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/collabedit/docsync/internal/core/domain"
)

const collectionDocuments = "documents"

type DocumentRepository struct {
	col *mongo.Collection
}

func NewDocumentRepository(db *mongo.Database) *DocumentRepository {
	return &DocumentRepository{col: db.Collection(collectionDocuments)}
}

// Get retrieves a document by id.
func (r *DocumentRepository) Get(ctx context.Context, id domain.DocumentID) (*domain.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var d domain.Document
	err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Put replaces the content with a single findOneAndUpdate. Without an expected
// version the update upserts unconditionally; with one, the filter includes
// the version so a stale writer matches nothing.
func (r *DocumentRepository) Put(ctx context.Context, id domain.DocumentID, content string, expectedVersion *int64) (*domain.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": string(id)}
	upsert := true
	if expectedVersion != nil {
		if *expectedVersion == 0 {
			filter["version"] = bson.M{"$exists": false}
		} else {
			filter["version"] = *expectedVersion
			upsert = false
		}
	}

	update := bson.M{
		"$set": bson.M{"content": content, "updated_at": time.Now().UTC()},
		"$inc": bson.M{"version": int64(1)},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(upsert).
		SetReturnDocument(options.After)

	var d domain.Document
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&d)
	if err != nil && expectedVersion == nil && mongo.IsDuplicateKeyError(err) {
		// Two unconditional upserts raced to create the document; the loser
		// retries as a plain update of the now existing row.
		err = r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&d)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) || mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrVersionConflict
		}
		return nil, err
	}
	return &d, nil
}

func (r *DocumentRepository) Name() string { return "mongodb" }

func (r *DocumentRepository) Ping(ctx context.Context) error {
	return r.col.Database().Client().Ping(ctx, nil)
}
