package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// RedisBroker implements Broker on a Redis backend: the inbound queue is a
// list (RPUSH/LPOP), the lease is a string written with SETNX and a TTL,
// and fan-out uses Redis pub/sub with pattern subscriptions.
type RedisBroker struct {
	client *redis.Client
	logger *zap.Logger

	mu     sync.Mutex
	subs   map[*redisSubscription]struct{}
	closed bool
}

// NewRedisBroker creates a broker on an existing Redis client.
func NewRedisBroker(client *redis.Client, logger *zap.Logger) (*RedisBroker, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	return &RedisBroker{
		client: client,
		logger: logger,
		subs:   make(map[*redisSubscription]struct{}),
	}, nil
}

// PushOperation appends a payload to the document's inbound FIFO queue.
func (b *RedisBroker) PushOperation(ctx context.Context, documentID string, payload []byte) error {
	if err := b.client.RPush(ctx, QueueKey(documentID), payload).Err(); err != nil {
		return errors.Wrap(err, "failed to push operation")
	}
	return nil
}

// PopOperation removes and returns the head of the document's inbound queue.
func (b *RedisBroker) PopOperation(ctx context.Context, documentID string) ([]byte, error) {
	data, err := b.client.LPop(ctx, QueueKey(documentID)).Bytes()
	if err == redis.Nil {
		return nil, ErrQueueEmpty
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to pop operation")
	}
	return data, nil
}

// QueueLength returns the number of pending payloads for a document.
func (b *RedisBroker) QueueLength(ctx context.Context, documentID string) (int64, error) {
	n, err := b.client.LLen(ctx, QueueKey(documentID)).Result()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read queue length")
	}
	return n, nil
}

// AcquireLease attempts to claim the document's processing lease.
func (b *RedisBroker) AcquireLease(ctx context.Context, documentID string, ttl time.Duration) (bool, error) {
	ok, err := b.client.SetNX(ctx, LeaseKey(documentID), 1, ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "failed to acquire lease")
	}
	return ok, nil
}

// ReleaseLease drops the document's processing lease.
func (b *RedisBroker) ReleaseLease(ctx context.Context, documentID string) error {
	if err := b.client.Del(ctx, LeaseKey(documentID)).Err(); err != nil {
		return errors.Wrap(err, "failed to release lease")
	}
	return nil
}

// Publish delivers a payload to the channel's current subscribers.
func (b *RedisBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return errors.Wrap(err, "failed to publish")
	}
	return nil
}

// Subscribe opens a pattern subscription backed by Redis PSUBSCRIBE.
func (b *RedisBroker) Subscribe(ctx context.Context, pattern string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("broker is closed")
	}

	pubsub := b.client.PSubscribe(ctx, pattern)
	// Wait for the subscription to be confirmed so published messages are
	// not lost between Subscribe returning and the receive loop starting.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, errors.Wrap(err, "failed to subscribe")
	}

	sub := &redisSubscription{
		broker: b,
		pubsub: pubsub,
		out:    make(chan Message, 64),
		done:   make(chan struct{}),
	}
	b.subs[sub] = struct{}{}
	go sub.receiveLoop()
	return sub, nil
}

// Close releases the broker and all open subscriptions.
func (b *RedisBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*redisSubscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
	return b.client.Close()
}

// redisSubscription adapts a redis.PubSub to the Subscription interface.
type redisSubscription struct {
	broker *RedisBroker
	pubsub *redis.PubSub
	out    chan Message
	done   chan struct{}

	closeOnce sync.Once
}

// Messages returns the stream of delivered payloads.
func (s *redisSubscription) Messages() <-chan Message {
	return s.out
}

// receiveLoop pumps Redis messages into the subscription channel. Slow
// consumers drop messages rather than block the pump; fan-out delivery is
// best effort.
func (s *redisSubscription) receiveLoop() {
	defer close(s.out)

	ch := s.pubsub.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			out := Message{Channel: msg.Channel, Payload: []byte(msg.Payload)}
			select {
			case s.out <- out:
			case <-s.done:
				return
			default:
				if s.broker.logger != nil {
					s.broker.logger.Warn("Dropping pub/sub message for slow subscriber",
						zap.String("channel", msg.Channel))
				}
			}
		}
	}
}

// Unsubscribe tears the subscription down.
func (s *redisSubscription) Unsubscribe() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.pubsub.Close()

		s.broker.mu.Lock()
		delete(s.broker.subs, s)
		s.broker.mu.Unlock()
	})
	return err
}
