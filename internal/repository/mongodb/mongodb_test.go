package mongodb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/quokka-collab/quokka/internal/domain"
)

func setupTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set; skipping MongoDB integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := Connect(ctx, uri)
	require.NoError(t, err)

	db := client.Database("quokka_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

func TestDocumentStoreRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	store, err := NewDocumentStore(ctx, db, zap.NewNop())
	require.NoError(t, err)

	doc := &domain.Document{
		ID:        uuid.NewString(),
		Title:     "notes",
		Content:   []string{"hello"},
		UserID:    "user-1",
		ShareRole: domain.RoleRead,
	}
	require.NoError(t, store.Insert(ctx, doc))

	got, err := store.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, got.Content)
	assert.Equal(t, int64(0), got.LastRevision)

	_, err = store.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStoreUpdateContentGuard(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	store, err := NewDocumentStore(ctx, db, zap.NewNop())
	require.NoError(t, err)

	doc := &domain.Document{ID: uuid.NewString(), Content: []string{"a"}}
	require.NoError(t, store.Insert(ctx, doc))

	require.NoError(t, store.UpdateContent(ctx, doc.ID, []string{"ab"}, 0, 1))
	err = store.UpdateContent(ctx, doc.ID, []string{"ax"}, 0, 1)
	assert.ErrorIs(t, err, domain.ErrRevisionConflict)

	err = store.UpdateContent(ctx, uuid.NewString(), []string{"x"}, 0, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOperationLogAppendAndSince(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	log, err := NewOperationLog(ctx, db, zap.NewNop())
	require.NoError(t, err)

	docID := uuid.NewString()
	for rev := int64(1); rev <= 3; rev++ {
		op := domain.LoggedOperation{
			Revision: rev,
			Operation: domain.Operation{
				Text:     []string{"x"},
				Type:     domain.OperationInput,
				Revision: rev,
			},
		}
		require.NoError(t, log.Append(ctx, docID, op))
	}

	// Identical payload on an existing revision is absorbed.
	require.NoError(t, log.Append(ctx, docID, domain.LoggedOperation{
		Revision:  2,
		Operation: domain.Operation{Text: []string{"x"}, Type: domain.OperationInput, Revision: 2},
	}))

	// A different payload on an existing revision is a conflict.
	err = log.Append(ctx, docID, domain.LoggedOperation{
		Revision:  2,
		Operation: domain.Operation{Text: []string{"y"}, Type: domain.OperationInput, Revision: 2},
	})
	assert.ErrorIs(t, err, domain.ErrRevisionConflict)

	ops, err := log.Since(ctx, docID, 1)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, int64(2), ops[0].Revision)
	assert.Equal(t, int64(3), ops[1].Revision)

	maxRev, err := log.MaxRevision(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), maxRev)

	require.NoError(t, log.DeleteAll(ctx, docID))
	maxRev, err = log.MaxRevision(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), maxRev)
}

func TestUserStoreUniqueUsername(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	store, err := NewUserStore(ctx, db)
	require.NoError(t, err)

	user := &domain.User{ID: uuid.NewString(), Username: "alice", IsActive: true}
	require.NoError(t, store.Insert(ctx, user))

	err = store.Insert(ctx, &domain.User{ID: uuid.NewString(), Username: "alice"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	got, err := store.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}
