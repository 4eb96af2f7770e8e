package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/quokka-collab/quokka/internal/domain"
)

// DocumentStore is a MongoDB implementation of domain.DocumentStore.
type DocumentStore struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewDocumentStore creates a document store on the given database.
func NewDocumentStore(ctx context.Context, db *mongo.Database, logger *zap.Logger) (*DocumentStore, error) {
	coll := db.Collection(documentCollection)

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	}
	if _, err := coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return nil, errors.Wrap(err, "failed to create document indexes")
	}

	return &DocumentStore{collection: coll, logger: logger}, nil
}

// Get retrieves a document by ID.
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find document")
	}
	return &doc, nil
}

// Insert stores a new document.
func (s *DocumentStore) Insert(ctx context.Context, doc *domain.Document) error {
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAlreadyExists
		}
		return errors.Wrap(err, "failed to insert document")
	}
	return nil
}

// Update replaces the document's CRUD-owned fields. Content and
// last_revision stay untouched; they belong to the serializer.
func (s *DocumentStore) Update(ctx context.Context, doc *domain.Document) error {
	update := bson.M{"$set": bson.M{
		"title":          doc.Title,
		"share_role":     doc.ShareRole,
		"shared_by_link": doc.SharedByLink,
		"updated_at":     time.Now(),
	}}
	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": doc.ID}, update)
	if err != nil {
		return errors.Wrap(err, "failed to update document")
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateContent sets content and last_revision with an optimistic guard on
// the revision the serializer loaded. A failed guard means another writer
// advanced the document first.
func (s *DocumentStore) UpdateContent(ctx context.Context, id string, content []string, fromRevision, toRevision int64) error {
	filter := bson.M{"_id": id, "last_revision": fromRevision}
	update := bson.M{"$set": bson.M{
		"content":       content,
		"last_revision": toRevision,
		"updated_at":    time.Now(),
	}}
	result, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return errors.Wrap(err, "failed to update document content")
	}
	if result.MatchedCount == 0 {
		// Distinguish a missing document from a lost revision race.
		if err := s.collection.FindOne(ctx, bson.M{"_id": id}).Err(); err == mongo.ErrNoDocuments {
			return domain.ErrNotFound
		}
		s.logger.Debug("Document content update lost a revision race",
			zap.String("document_id", id),
			zap.Int64("from_revision", fromRevision))
		return domain.ErrRevisionConflict
	}
	return nil
}

// Delete removes a document.
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "failed to delete document")
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByUser returns the documents owned by a user.
func (s *DocumentStore) ListByUser(ctx context.Context, userID string) ([]*domain.Document, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list documents")
	}
	defer cursor.Close(ctx)

	var docs []*domain.Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "failed to decode documents")
	}
	return docs, nil
}
