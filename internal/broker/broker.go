// Package broker abstracts the coordination backplane of the collaboration
// engine: the per-document inbound operation queue, the processing lease
// that serializes workers across processes, and the pub/sub fan-out that
// delivers accepted operations to live sessions.
package broker

import (
	"context"
	"errors"
	"time"
)

// ErrQueueEmpty is returned by PopOperation when a document's inbound
// queue has been drained.
var ErrQueueEmpty = errors.New("operation queue is empty")

// Message is a single payload delivered to a subscriber.
type Message struct {
	// Channel is the channel the payload was published on.
	Channel string
	// Payload is the raw published data.
	Payload []byte
}

// Subscription is a live pub/sub subscription.
type Subscription interface {
	// Messages returns the stream of delivered payloads. The channel is
	// closed after Unsubscribe.
	Messages() <-chan Message
	// Unsubscribe tears the subscription down and releases its resources.
	// It is safe to call more than once.
	Unsubscribe() error
}

// Broker combines the queue, lease and fan-out primitives. All methods are
// safe for concurrent use.
type Broker interface {
	// PushOperation appends a payload to the document's inbound FIFO queue.
	PushOperation(ctx context.Context, documentID string, payload []byte) error
	// PopOperation removes and returns the head of the document's inbound
	// queue. Returns ErrQueueEmpty when the queue is drained.
	PopOperation(ctx context.Context, documentID string) ([]byte, error)
	// QueueLength returns the number of pending payloads for a document.
	QueueLength(ctx context.Context, documentID string) (int64, error)

	// AcquireLease attempts to claim the document's processing lease with a
	// set-if-absent. It reports whether this caller won the claim. The
	// lease expires after ttl so a crashed worker cannot block a document.
	AcquireLease(ctx context.Context, documentID string, ttl time.Duration) (bool, error)
	// ReleaseLease drops the document's processing lease.
	ReleaseLease(ctx context.Context, documentID string) error

	// Publish delivers a payload to the channel's current subscribers.
	// Delivery is best effort.
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe opens a subscription for a channel pattern. A trailing '*'
	// in the pattern matches any suffix; per-session fan-out subscribes to
	// "{documentID}_*" and filters its own token locally.
	Subscribe(ctx context.Context, pattern string) (Subscription, error)

	// Close releases the broker and all open subscriptions.
	Close() error
}

// QueueKey is the inbound queue key for a document.
func QueueKey(documentID string) string {
	return "document_operations_" + documentID
}

// LeaseKey is the processing lease key for a document.
func LeaseKey(documentID string) string {
	return "document_processing_" + documentID
}

// Channel is the fan-out channel for a document and submitter token.
func Channel(documentID, sessionToken string) string {
	return documentID + "_" + sessionToken
}

// ChannelPattern matches every fan-out channel of a document.
func ChannelPattern(documentID string) string {
	return documentID + "_*"
}
