package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conflict-signal/internal/bus"
)

func TestMemoryBus_PublishConsume(t *testing.T) {
	b := New(Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var mu sync.Mutex
	var got []*bus.Message
	done := make(chan struct{})

	// Subscribe before publishing
	_ = b.groupChannel(bus.QueueArticles, "g")
	go func() {
		_ = b.Consume(ctx, bus.QueueArticles, "g", func(_ context.Context, msg *bus.Message) error {
			mu.Lock()
			got = append(got, msg)
			n := len(got)
			mu.Unlock()
			if n == 2 {
				close(done)
			}
			return nil
		})
	}()

	require.NoError(t, b.Publish(ctx, bus.QueueArticles, []byte(`{"n":1}`)))
	require.NoError(t, b.Publish(ctx, bus.QueueArticles, []byte(`{"n":2}`)))

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("timed out waiting for messages")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.JSONEq(t, `{"n":1}`, string(got[0].Body))
	assert.Equal(t, 1, got[0].Attempt)
}

func TestMemoryBus_RetryThenSucceed(t *testing.T) {
	b := New(Options{RetryDelay: 5 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_ = b.groupChannel(bus.QueueEvents, "g")

	done := make(chan *bus.Message, 1)
	go func() {
		_ = b.Consume(ctx, bus.QueueEvents, "g", func(_ context.Context, msg *bus.Message) error {
			if msg.Attempt == 1 {
				return errors.New("transient")
			}
			done <- msg
			return nil
		})
	}()

	require.NoError(t, b.Publish(ctx, bus.QueueEvents, []byte(`{"event_id":"e1"}`)))

	select {
	case msg := <-done:
		assert.Equal(t, 2, msg.Attempt)
		assert.JSONEq(t, `{"event_id":"e1"}`, string(msg.Body))
	case <-ctx.Done():
		t.Fatal("timed out waiting for redelivery")
	}
}

func TestMemoryBus_GroupsEachSeeFullStream(t *testing.T) {
	b := New(Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_ = b.groupChannel(bus.QueueSignals, "g1")
	_ = b.groupChannel(bus.QueueSignals, "g2")

	var wg sync.WaitGroup
	counts := make([]int, 2)
	for i, group := range []string{"g1", "g2"} {
		wg.Add(1)
		i, group := i, group
		go func() {
			defer wg.Done()
			cctx, ccancel := context.WithCancel(ctx)
			defer ccancel()
			_ = b.Consume(cctx, bus.QueueSignals, group, func(context.Context, *bus.Message) error {
				counts[i]++
				if counts[i] == 3 {
					ccancel()
				}
				return nil
			})
		}()
	}

	for n := 0; n < 3; n++ {
		require.NoError(t, b.Publish(ctx, bus.QueueSignals, []byte(`{}`)))
	}

	wg.Wait()
	assert.Equal(t, 3, counts[0])
	assert.Equal(t, 3, counts[1])
}

func TestMemoryBus_DropsAfterMaxAttempts(t *testing.T) {
	b := New(Options{MaxAttempts: 2, RetryDelay: time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_ = b.groupChannel(bus.QueueArticles, "g")

	var mu sync.Mutex
	attempts := 0
	go func() {
		_ = b.Consume(ctx, bus.QueueArticles, "g", func(context.Context, *bus.Message) error {
			mu.Lock()
			attempts++
			mu.Unlock()
			return errors.New("always fails")
		})
	}()

	require.NoError(t, b.Publish(ctx, bus.QueueArticles, []byte(`{}`)))

	time.Sleep(200 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, attempts)
}
