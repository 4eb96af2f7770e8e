package mongodb

import (
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/quokka-collab/quokka/internal/domain"
)

// OperationLog is a MongoDB implementation of domain.OperationLog. The
// unique (document_id, revision) index is what detects revision collisions
// between racing writers.
type OperationLog struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewOperationLog creates an operation log on the given database.
func NewOperationLog(ctx context.Context, db *mongo.Database, logger *zap.Logger) (*OperationLog, error) {
	coll := db.Collection(operationCollection)

	indexModels := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "document_id", Value: 1},
				{Key: "revision", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return nil, errors.Wrap(err, "failed to create operation indexes")
	}

	return &OperationLog{collection: coll, logger: logger}, nil
}

// Append stores an accepted operation. Re-appending an identical payload
// on an existing revision is a no-op; a differing payload returns
// ErrRevisionConflict.
func (l *OperationLog) Append(ctx context.Context, documentID string, op domain.LoggedOperation) error {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now()
	}
	op.DocumentID = documentID

	if _, err := l.collection.InsertOne(ctx, op); err != nil {
		if !mongo.IsDuplicateKeyError(err) {
			return errors.Wrap(err, "failed to insert operation")
		}
		var existing domain.LoggedOperation
		filter := bson.M{"document_id": documentID, "revision": op.Revision}
		if err := l.collection.FindOne(ctx, filter).Decode(&existing); err != nil {
			return errors.Wrap(err, "failed to load conflicting operation")
		}
		if reflect.DeepEqual(existing.Operation, op.Operation) {
			return nil
		}
		return domain.ErrRevisionConflict
	}

	l.logger.Debug("Operation logged",
		zap.String("document_id", documentID),
		zap.Int64("revision", op.Revision),
		zap.String("type", string(op.Operation.Type)))
	return nil
}

// Since returns logged operations with revision strictly greater than
// revisionExclusive, ascending by revision.
func (l *OperationLog) Since(ctx context.Context, documentID string, revisionExclusive int64) ([]domain.LoggedOperation, error) {
	filter := bson.M{
		"document_id": documentID,
		"revision":    bson.M{"$gt": revisionExclusive},
	}
	opts := options.Find().SetSort(bson.D{{Key: "revision", Value: 1}})

	cursor, err := l.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query operations")
	}
	defer cursor.Close(ctx)

	var ops []domain.LoggedOperation
	if err := cursor.All(ctx, &ops); err != nil {
		return nil, errors.Wrap(err, "failed to decode operations")
	}
	return ops, nil
}

// MaxRevision returns the highest logged revision, or 0 for an empty log.
func (l *OperationLog) MaxRevision(ctx context.Context, documentID string) (int64, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "revision", Value: -1}})

	var latest domain.LoggedOperation
	err := l.collection.FindOne(ctx, bson.M{"document_id": documentID}, opts).Decode(&latest)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to query max revision")
	}
	return latest.Revision, nil
}

// DeleteAll drops a document's history.
func (l *OperationLog) DeleteAll(ctx context.Context, documentID string) error {
	if _, err := l.collection.DeleteMany(ctx, bson.M{"document_id": documentID}); err != nil {
		return errors.Wrap(err, "failed to delete operations")
	}
	return nil
}
