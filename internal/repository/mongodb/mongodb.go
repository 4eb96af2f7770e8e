// Package mongodb provides MongoDB-backed implementations of the domain
// stores. Collections are index-initialized at construction time; the
// operation log enforces revision uniqueness with a compound unique index
// and the document store guards content updates on last_revision.
package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	documentCollection  = "documents"
	operationCollection = "operations"
	userCollection      = "users"
	templateCollection  = "document_templates"
)

// Connect opens a MongoDB client and verifies the connection.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to MongoDB")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "failed to ping MongoDB")
	}
	return client, nil
}
