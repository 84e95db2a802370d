package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polytgbot/internal/domain"
)

// testClient connects to POLYTG_TEST_REDIS_URL or skips.
func testClient(t *testing.T) *Client {
	t.Helper()
	url := os.Getenv("POLYTG_TEST_REDIS_URL")
	if url == "" {
		t.Skip("POLYTG_TEST_REDIS_URL not set")
	}
	c, err := New(context.Background(), ClientConfig{URL: url})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestKeysAreNamespaced(t *testing.T) {
	assert.Equal(t, "polytg:listings:cat:nba:15", listingKey("cat:nba:15"))
	assert.Equal(t, "polytg:lock:user:42", lockKey("user:42"))
	assert.Equal(t, "polytg:ratelimit:user:42", rateLimitKey("user:42"))
	assert.Equal(t, "polytg:orders", busChannel("orders"))
}

func TestListingCacheRoundTrip(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	cache := NewListingCache(c, time.Minute)
	key := "test:" + uuid.NewString()

	_, err := cache.Get(ctx, key)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	want := []domain.Listing{{ID: "m1", Question: "Lakers win?", Outcomes: [2]domain.Outcome{{Label: "Yes", TokenID: "1", Price: 0.6}, {Label: "No", TokenID: "2", Price: 0.4}}}}
	require.NoError(t, cache.Set(ctx, key, want))

	got, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLockExcludesSecondHolder(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	lm := NewLockManager(c)
	key := "test:" + uuid.NewString()

	unlock, err := lm.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)

	_, err = lm.Acquire(ctx, key, time.Minute)
	assert.True(t, errors.Is(err, domain.ErrLockHeld))

	unlock()
	unlock()

	again, err := lm.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	again()
}

func TestRateLimiterWindow(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	rl := NewRateLimiter(c)
	key := "test:" + uuid.NewString()

	for range 3 {
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := rl.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignalBusDelivers(t *testing.T) {
	c := testClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := NewSignalBus(c)
	channel := "test:" + uuid.NewString()

	ch, err := bus.Subscribe(ctx, channel)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, channel, []byte(`{"ok":true}`)))

	select {
	case msg := <-ch:
		assert.JSONEq(t, `{"ok":true}`, string(msg))
	case <-time.After(5 * time.Second):
		t.Fatal("no message")
	}

	cancel()
	for range ch {
	}
}
