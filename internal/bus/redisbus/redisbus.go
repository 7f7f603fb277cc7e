package redisbus

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"conflict-signal/internal/bus"
	"conflict-signal/internal/observability"
)

// Options configures the Redis Streams bus.
type Options struct {
	// Logger for delivery errors. Defaults to log.Default().
	Logger *log.Logger

	// MaxAttempts before a message is dropped. Default 5.
	MaxAttempts int

	// RetryDelay is the base redelivery delay, multiplied by the attempt
	// number. Default 2s.
	RetryDelay time.Duration

	// BlockTimeout bounds each blocking read. Default 5s.
	BlockTimeout time.Duration

	// ClaimMinIdle is how long a pending message may sit with a dead
	// consumer before another claims it. Default 60s.
	ClaimMinIdle time.Duration
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 2 * time.Second
	}
	if o.BlockTimeout <= 0 {
		o.BlockTimeout = 5 * time.Second
	}
	if o.ClaimMinIdle <= 0 {
		o.ClaimMinIdle = 60 * time.Second
	}
}

// RedisBus implements bus.Bus on Redis Streams with consumer groups.
// Messages stay in the pending entries list until acknowledged, so a
// crashed consumer's messages are reclaimed by the next one.
type RedisBus struct {
	client redis.UniversalClient
	opts   Options
}

// New connects to Redis using a redis:// URL.
func New(url string, opts Options) (*RedisBus, error) {
	cfg, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewWithClient(redis.NewClient(cfg), opts), nil
}

// NewWithClient wraps an existing client. Used by tests with miniredis.
func NewWithClient(client redis.UniversalClient, opts Options) *RedisBus {
	opts.setDefaults()
	return &RedisBus{client: client, opts: opts}
}

// Compile-time interface check.
var _ bus.Bus = (*RedisBus)(nil)

// Publish appends a message to a queue stream.
func (b *RedisBus) Publish(ctx context.Context, queue string, body []byte) error {
	return b.publish(ctx, queue, body, 1)
}

func (b *RedisBus) publish(ctx context.Context, queue string, body []byte, attempt int) error {
	err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: queue,
		Values: map[string]any{
			"body":         body,
			"attempt":      attempt,
			"published_at": time.Now().UnixMilli(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", queue, err)
	}
	return nil
}

// Consume blocks delivering messages from a queue to the handler until
// ctx is cancelled.
func (b *RedisBus) Consume(ctx context.Context, queue, group string, h bus.Handler) error {
	if err := b.ensureGroup(ctx, queue, group); err != nil {
		return err
	}

	consumer := group + "-" + uuid.NewString()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Reclaim messages stuck with dead consumers before reading new ones.
		b.claimStale(ctx, queue, group, consumer, h)

		streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{queue, ">"},
			Count:    16,
			Block:    b.opts.BlockTimeout,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.opts.Logger.Printf("[bus] read %s: %v", queue, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range streams {
			for _, entry := range stream.Messages {
				b.deliver(ctx, queue, group, entry, h)
			}
		}
	}
}

// deliver runs the handler and acks. Failed messages are republished
// with a delay and a bumped attempt counter; the original entry is
// acked only after the replacement is in the stream, so a crash or
// shutdown mid-retry leaves it pending for XAutoClaim instead of
// losing it. The max-attempts ack keeps poison messages from wedging
// the stream.
func (b *RedisBus) deliver(ctx context.Context, queue, group string, entry redis.XMessage, h bus.Handler) {
	msg := decodeMessage(queue, entry)
	observability.RecordMessageConsumed(queue)

	err := h(ctx, msg)
	if err == nil {
		b.ack(ctx, queue, group, entry.ID)
		return
	}

	if msg.Attempt >= b.opts.MaxAttempts {
		b.opts.Logger.Printf("[bus] %s message %s dropped after %d attempts: %v", queue, entry.ID, msg.Attempt, err)
		b.ack(ctx, queue, group, entry.ID)
		return
	}

	b.opts.Logger.Printf("[bus] %s message %s attempt %d failed, retrying: %v", queue, entry.ID, msg.Attempt, err)
	delay := time.Duration(msg.Attempt) * b.opts.RetryDelay
	body := msg.Body
	attempt := msg.Attempt + 1
	go func() {
		select {
		case <-ctx.Done():
			// Shutting down: skip the remaining delay, the republish
			// below still must happen before the ack.
		case <-time.After(delay):
		}
		repubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := b.publish(repubCtx, queue, body, attempt); err != nil {
			// Not acked: the entry stays in the pending list and is
			// reclaimed once it sits idle long enough.
			b.opts.Logger.Printf("[bus] republish %s: %v, message %s left pending", queue, err, entry.ID)
			return
		}
		b.ack(repubCtx, queue, group, entry.ID)
	}()
}

// claimStale takes over pending messages whose consumer died.
func (b *RedisBus) claimStale(ctx context.Context, queue, group, consumer string, h bus.Handler) {
	entries, _, err := b.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   queue,
		Group:    group,
		Consumer: consumer,
		MinIdle:  b.opts.ClaimMinIdle,
		Start:    "0",
		Count:    16,
	}).Result()
	if err != nil || len(entries) == 0 {
		return
	}

	for _, entry := range entries {
		b.deliver(ctx, queue, group, entry, h)
	}
}

func (b *RedisBus) ensureGroup(ctx context.Context, queue, group string) error {
	err := b.client.XGroupCreateMkStream(ctx, queue, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s on %s: %w", group, queue, err)
	}
	return nil
}

func (b *RedisBus) ack(ctx context.Context, queue, group, id string) {
	if err := b.client.XAck(ctx, queue, group, id).Err(); err != nil {
		b.opts.Logger.Printf("[bus] ack %s %s: %v", queue, id, err)
	}
}

// Ping verifies connectivity.
func (b *RedisBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close releases the client.
func (b *RedisBus) Close() error {
	return b.client.Close()
}

func decodeMessage(queue string, entry redis.XMessage) *bus.Message {
	msg := &bus.Message{
		ID:      entry.ID,
		Queue:   queue,
		Attempt: 1,
	}
	if raw, ok := entry.Values["body"].(string); ok {
		msg.Body = []byte(raw)
	}
	if raw, ok := entry.Values["attempt"].(string); ok {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			msg.Attempt = n
		}
	}
	if raw, ok := entry.Values["published_at"].(string); ok {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			msg.PublishedAt = time.UnixMilli(ms)
		}
	}
	return msg
}
