package eventbus

import (
	"testing"
	"time"

	"github.com/flowcore/flowcore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	b := New()
	sub1 := b.Subscribe()
	sub2 := b.Subscribe()
	defer sub1.Close()
	defer sub2.Close()

	b.Publish(domain.Event{Type: domain.EventExecutionStarted, Seq: 1})

	select {
	case e := <-sub1.Events():
		assert.Equal(t, uint64(1), e.Seq)
	case <-time.After(time.Second):
		t.Fatal("sub1 did not receive event")
	}
	select {
	case e := <-sub2.Events():
		assert.Equal(t, uint64(1), e.Seq)
	case <-time.After(time.Second):
		t.Fatal("sub2 did not receive event")
	}
}

func TestPublishNeverBlocksOnFullBuffer(t *testing.T) {
	b := NewWithBufferSize(2)
	sub := b.Subscribe()
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(domain.Event{Seq: uint64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber buffer")
	}
	assert.True(t, sub.Dropped() > 0, "expected some events to be dropped once the buffer filled")
}

func TestCloseStopsDelivery(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	require.Equal(t, 1, b.SubscriberCount())
	sub.Close()
	assert.Equal(t, 0, b.SubscriberCount())

	_, ok := <-sub.Events()
	assert.False(t, ok, "events channel should be closed")

	// Publishing after close must not panic or deliver anywhere.
	b.Publish(domain.Event{Seq: 99})
}

func TestCloseIsIdempotent(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	sub.Close()
	assert.NotPanics(t, func() { sub.Close() })
}

func TestDefaultBufferSizeFallback(t *testing.T) {
	b := NewWithBufferSize(0)
	assert.Equal(t, DefaultBufferSize, b.bufferSize)
}
