package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusFanOut(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := bus.Subscribe(ctx, "orders")
	require.NoError(t, err)
	b, err := bus.Subscribe(ctx, "orders")
	require.NoError(t, err)
	other, err := bus.Subscribe(ctx, "other")
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "orders", []byte("hello")))

	assert.Equal(t, "hello", string(<-a))
	assert.Equal(t, "hello", string(<-b))
	select {
	case msg := <-other:
		t.Fatalf("unexpected message on other channel: %s", msg)
	default:
	}
}

func TestBusClosesOnCancel(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := bus.Subscribe(ctx, "orders")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed")
	}
	// Publishing after the subscriber left is a no-op.
	require.NoError(t, bus.Publish(context.Background(), "orders", []byte("late")))
}

func TestBusDropsForSlowSubscriber(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, "orders")
	require.NoError(t, err)
	for range busBuffer + 10 {
		require.NoError(t, bus.Publish(ctx, "orders", []byte("x")))
	}
	assert.Len(t, ch, busBuffer)
}
