package broker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryBroker implements Broker with in-process data structures. It backs
// tests and single-process deployments; the semantics mirror the Redis
// implementation, including lease TTL expiry.
type MemoryBroker struct {
	mu     sync.Mutex
	queues map[string][][]byte
	leases map[string]time.Time
	subs   map[*memorySubscription]struct{}
	closed bool

	// now is replaceable so lease expiry is testable.
	now func() time.Time
}

// NewMemoryBroker creates an in-process broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		queues: make(map[string][][]byte),
		leases: make(map[string]time.Time),
		subs:   make(map[*memorySubscription]struct{}),
		now:    time.Now,
	}
}

// PushOperation appends a payload to the document's inbound FIFO queue.
func (b *MemoryBroker) PushOperation(_ context.Context, documentID string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("broker is closed")
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	key := QueueKey(documentID)
	b.queues[key] = append(b.queues[key], cp)
	return nil
}

// PopOperation removes and returns the head of the document's inbound queue.
func (b *MemoryBroker) PopOperation(_ context.Context, documentID string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := QueueKey(documentID)
	queue := b.queues[key]
	if len(queue) == 0 {
		return nil, ErrQueueEmpty
	}
	head := queue[0]
	b.queues[key] = queue[1:]
	return head, nil
}

// QueueLength returns the number of pending payloads for a document.
func (b *MemoryBroker) QueueLength(_ context.Context, documentID string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.queues[QueueKey(documentID)])), nil
}

// AcquireLease attempts to claim the document's processing lease.
func (b *MemoryBroker) AcquireLease(_ context.Context, documentID string, ttl time.Duration) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := LeaseKey(documentID)
	if expiry, held := b.leases[key]; held && b.now().Before(expiry) {
		return false, nil
	}
	b.leases[key] = b.now().Add(ttl)
	return true, nil
}

// ReleaseLease drops the document's processing lease.
func (b *MemoryBroker) ReleaseLease(_ context.Context, documentID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.leases, LeaseKey(documentID))
	return nil
}

// Publish delivers a payload to matching subscribers.
func (b *MemoryBroker) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("broker is closed")
	}
	msg := Message{Channel: channel, Payload: payload}
	for sub := range b.subs {
		if !matchPattern(sub.pattern, channel) {
			continue
		}
		select {
		case sub.out <- msg:
		default:
			// Slow subscriber; best-effort delivery drops the message.
		}
	}
	return nil
}

// Subscribe opens a subscription for a channel pattern.
func (b *MemoryBroker) Subscribe(_ context.Context, pattern string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("broker is closed")
	}
	sub := &memorySubscription{
		broker:  b,
		pattern: pattern,
		out:     make(chan Message, 64),
	}
	b.subs[sub] = struct{}{}
	return sub, nil
}

// Close releases the broker and all open subscriptions.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*memorySubscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
	return nil
}

// matchPattern matches a channel against a pattern where a trailing '*'
// matches any suffix. This is the only glob shape the engine uses.
func matchPattern(pattern, channel string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(channel, prefix)
	}
	return pattern == channel
}

// memorySubscription is a channel-backed subscription.
type memorySubscription struct {
	broker  *MemoryBroker
	pattern string
	out     chan Message

	closeOnce sync.Once
}

// Messages returns the stream of delivered payloads.
func (s *memorySubscription) Messages() <-chan Message {
	return s.out
}

// Unsubscribe tears the subscription down.
func (s *memorySubscription) Unsubscribe() error {
	s.closeOnce.Do(func() {
		s.broker.mu.Lock()
		delete(s.broker.subs, s)
		s.broker.mu.Unlock()
		close(s.out)
	})
	return nil
}
