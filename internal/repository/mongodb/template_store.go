package mongodb

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/quokka-collab/quokka/internal/domain"
)

// TemplateStore is a MongoDB implementation of domain.TemplateStore.
type TemplateStore struct {
	collection *mongo.Collection
}

// NewTemplateStore creates a template store on the given database.
func NewTemplateStore(db *mongo.Database) *TemplateStore {
	return &TemplateStore{collection: db.Collection(templateCollection)}
}

// Get retrieves a template by ID.
func (s *TemplateStore) Get(ctx context.Context, id string) (*domain.DocumentTemplate, error) {
	var tpl domain.DocumentTemplate
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&tpl)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find template")
	}
	return &tpl, nil
}

// Insert stores a new template.
func (s *TemplateStore) Insert(ctx context.Context, tpl *domain.DocumentTemplate) error {
	if _, err := s.collection.InsertOne(ctx, tpl); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAlreadyExists
		}
		return errors.Wrap(err, "failed to insert template")
	}
	return nil
}

// Delete removes a template.
func (s *TemplateStore) Delete(ctx context.Context, id string) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "failed to delete template")
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns all templates ordered by title.
func (s *TemplateStore) List(ctx context.Context) ([]*domain.DocumentTemplate, error) {
	opts := options.Find().SetSort(bson.D{{Key: "title", Value: 1}})
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list templates")
	}
	defer cursor.Close(ctx)

	var templates []*domain.DocumentTemplate
	if err := cursor.All(ctx, &templates); err != nil {
		return nil, errors.Wrap(err, "failed to decode templates")
	}
	return templates, nil
}
