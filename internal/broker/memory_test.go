package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBrokerQueueFIFO(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroker()
	defer b.Close()

	require.NoError(t, b.PushOperation(ctx, "doc", []byte("one")))
	require.NoError(t, b.PushOperation(ctx, "doc", []byte("two")))
	require.NoError(t, b.PushOperation(ctx, "doc", []byte("three")))

	n, err := b.QueueLength(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	for _, want := range []string{"one", "two", "three"} {
		got, err := b.PopOperation(ctx, "doc")
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}

	_, err = b.PopOperation(ctx, "doc")
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestMemoryBrokerQueuesAreIndependent(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroker()
	defer b.Close()

	require.NoError(t, b.PushOperation(ctx, "doc-a", []byte("a")))

	_, err := b.PopOperation(ctx, "doc-b")
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestMemoryBrokerLeaseExclusive(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroker()
	defer b.Close()

	ok, err := b.AcquireLease(ctx, "doc", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.AcquireLease(ctx, "doc", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.ReleaseLease(ctx, "doc"))

	ok, err = b.AcquireLease(ctx, "doc", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryBrokerLeaseExpires(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroker()
	defer b.Close()

	now := time.Now()
	b.now = func() time.Time { return now }

	ok, err := b.AcquireLease(ctx, "doc", 30*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// A crashed worker never releases; the TTL must unblock the document.
	now = now.Add(31 * time.Second)

	ok, err = b.AcquireLease(ctx, "doc", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryBrokerPubSubPatternDelivery(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroker()
	defer b.Close()

	sub, err := b.Subscribe(ctx, "doc-1_*")
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, b.Publish(ctx, "doc-1_alice", []byte("hello")))
	require.NoError(t, b.Publish(ctx, "doc-2_bob", []byte("other document")))

	select {
	case msg := <-sub.Messages():
		assert.Equal(t, "doc-1_alice", msg.Channel)
		assert.Equal(t, "hello", string(msg.Payload))
	case <-time.After(time.Second):
		t.Fatal("expected a delivered message")
	}

	select {
	case msg := <-sub.Messages():
		t.Fatalf("unexpected message on channel %s", msg.Channel)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBrokerUnsubscribeClosesStream(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroker()
	defer b.Close()

	sub, err := b.Subscribe(ctx, "doc_*")
	require.NoError(t, err)
	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())

	_, open := <-sub.Messages()
	assert.False(t, open)

	// Publishing after unsubscribe must not panic or deliver.
	require.NoError(t, b.Publish(ctx, "doc_x", []byte("late")))
}

func TestMemoryBrokerCloseRejectsFurtherUse(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroker()
	require.NoError(t, b.Close())

	assert.Error(t, b.PushOperation(ctx, "doc", []byte("x")))
	_, err := b.Subscribe(ctx, "doc_*")
	assert.Error(t, err)
}
