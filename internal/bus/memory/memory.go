package memory

import (
	"context"
	"log"
	"sync"
	"time"

	"conflict-signal/internal/bus"

	"github.com/google/uuid"
)

// Options configures the in-memory bus.
type Options struct {
	// Logger for delivery errors. Defaults to log.Default().
	Logger *log.Logger

	// MaxAttempts before a message is dropped. Default 5.
	MaxAttempts int

	// RetryDelay is the base redelivery delay, multiplied by the attempt
	// number. Default 100ms.
	RetryDelay time.Duration

	// QueueDepth bounds each queue's channel. Default 1024.
	QueueDepth int
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 100 * time.Millisecond
	}
	if o.QueueDepth <= 0 {
		o.QueueDepth = 1024
	}
}

// MemoryBus is a channel-backed implementation of bus.Bus, used in tests
// and single-process deployments. Within one group messages are
// load-balanced; separate groups each see the full stream.
type MemoryBus struct {
	mu     sync.Mutex
	queues map[string]map[string]chan *bus.Message // queue -> group -> channel
	opts   Options
	closed bool
}

// New creates a new in-memory bus.
func New(opts Options) *MemoryBus {
	opts.setDefaults()
	return &MemoryBus{
		queues: make(map[string]map[string]chan *bus.Message),
		opts:   opts,
	}
}

// Compile-time interface check.
var _ bus.Bus = (*MemoryBus)(nil)

// Publish appends a message to a queue, fanning out to every group.
// Messages published before any group has subscribed are dropped, so
// consumers must be wired before producers start.
func (b *MemoryBus) Publish(ctx context.Context, queue string, body []byte) error {
	return b.publish(ctx, queue, body, 1)
}

func (b *MemoryBus) publish(ctx context.Context, queue string, body []byte, attempt int) error {
	b.mu.Lock()
	groups := b.queues[queue]
	channels := make([]chan *bus.Message, 0, len(groups))
	for _, ch := range groups {
		channels = append(channels, ch)
	}
	b.mu.Unlock()

	msg := &bus.Message{
		ID:          uuid.NewString(),
		Queue:       queue,
		Body:        body,
		Attempt:     attempt,
		PublishedAt: time.Now(),
	}

	for _, ch := range channels {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Consume blocks delivering messages from a queue to the handler until
// ctx is cancelled.
func (b *MemoryBus) Consume(ctx context.Context, queue, group string, h bus.Handler) error {
	ch := b.groupChannel(queue, group)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-ch:
			if err := h(ctx, msg); err != nil {
				b.retry(ctx, msg, err)
			}
		}
	}
}

func (b *MemoryBus) retry(ctx context.Context, msg *bus.Message, cause error) {
	if msg.Attempt >= b.opts.MaxAttempts {
		b.opts.Logger.Printf("[bus] %s message %s dropped after %d attempts: %v", msg.Queue, msg.ID, msg.Attempt, cause)
		return
	}

	b.opts.Logger.Printf("[bus] %s message %s attempt %d failed, retrying: %v", msg.Queue, msg.ID, msg.Attempt, cause)
	delay := time.Duration(msg.Attempt) * b.opts.RetryDelay
	body := msg.Body
	attempt := msg.Attempt + 1
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if err := b.publish(context.WithoutCancel(ctx), msg.Queue, body, attempt); err != nil {
			b.opts.Logger.Printf("[bus] republish %s: %v", msg.Queue, err)
		}
	}()
}

func (b *MemoryBus) groupChannel(queue, group string) chan *bus.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	groups, ok := b.queues[queue]
	if !ok {
		groups = make(map[string]chan *bus.Message)
		b.queues[queue] = groups
	}
	ch, ok := groups[group]
	if !ok {
		ch = make(chan *bus.Message, b.opts.QueueDepth)
		groups[group] = ch
	}
	return ch
}

// Ping always succeeds while the bus is open.
func (b *MemoryBus) Ping(_ context.Context) error {
	return nil
}

// Close marks the bus closed. Channels are left to the GC so in-flight
// consumers do not panic on send.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
