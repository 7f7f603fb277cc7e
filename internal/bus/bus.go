package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"conflict-signal/internal/observability"
)

// Queue names connecting the pipeline stages.
const (
	QueueArticles = "articles" // ingestion -> extraction
	QueueEvents   = "events"   // extraction -> scoring
	QueueSignals  = "signals"  // scoring -> subscribers
)

// Message is the envelope delivered to consumers. Delivery is
// at-least-once; consumers must be idempotent on the body's natural key.
type Message struct {
	ID          string    `json:"id"`
	Queue       string    `json:"queue"`
	Body        []byte    `json:"body"`
	Attempt     int       `json:"attempt"`
	PublishedAt time.Time `json:"published_at"`
}

// Handler processes one message. A nil return acknowledges the message;
// an error schedules a redelivery with backoff.
type Handler func(ctx context.Context, msg *Message) error

// Publisher enqueues messages.
type Publisher interface {
	// Publish appends a message to a queue.
	Publish(ctx context.Context, queue string, body []byte) error
}

// Consumer delivers messages to a handler.
type Consumer interface {
	// Consume blocks delivering messages from a queue to the handler
	// until ctx is cancelled. group names the consumer group; messages
	// are load-balanced across consumers sharing a group.
	Consume(ctx context.Context, queue, group string, h Handler) error
}

// Bus is a durable message bus.
type Bus interface {
	Publisher
	Consumer

	// Ping verifies connectivity for health checks.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// PublishJSON marshals v and publishes it to a queue.
func PublishJSON(ctx context.Context, p Publisher, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message for %s: %w", queue, err)
	}
	if err := p.Publish(ctx, queue, body); err != nil {
		return err
	}
	observability.RecordMessagePublished(queue)
	return nil
}
