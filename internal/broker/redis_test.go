package broker

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRedisBroker(t *testing.T) *RedisBroker {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set; skipping Redis integration test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	b, err := NewRedisBroker(client, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestRedisBrokerQueueFIFO(t *testing.T) {
	b := setupRedisBroker(t)
	ctx := context.Background()
	docID := uuid.NewString()

	require.NoError(t, b.PushOperation(ctx, docID, []byte("one")))
	require.NoError(t, b.PushOperation(ctx, docID, []byte("two")))

	got, err := b.PopOperation(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))

	got, err = b.PopOperation(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	_, err = b.PopOperation(ctx, docID)
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestRedisBrokerLease(t *testing.T) {
	b := setupRedisBroker(t)
	ctx := context.Background()
	docID := uuid.NewString()

	ok, err := b.AcquireLease(ctx, docID, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.AcquireLease(ctx, docID, 30*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.ReleaseLease(ctx, docID))

	ok, err = b.AcquireLease(ctx, docID, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, b.ReleaseLease(ctx, docID))
}

func TestRedisBrokerPubSub(t *testing.T) {
	b := setupRedisBroker(t)
	ctx := context.Background()
	docID := uuid.NewString()

	sub, err := b.Subscribe(ctx, ChannelPattern(docID))
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, b.Publish(ctx, Channel(docID, "alice"), []byte("payload")))

	select {
	case msg := <-sub.Messages():
		assert.Equal(t, Channel(docID, "alice"), msg.Channel)
		assert.Equal(t, "payload", string(msg.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("expected a delivered message")
	}
}
