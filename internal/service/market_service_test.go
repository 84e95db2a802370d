package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polytgbot/internal/domain"
)

type countingSource struct {
	calls    int
	queries  []string
	listings []domain.Listing
	err      error
}

func (c *countingSource) SearchListings(_ context.Context, q string, _ int) ([]domain.Listing, error) {
	c.calls++
	c.queries = append(c.queries, q)
	return c.listings, c.err
}

func (c *countingSource) ListByCategory(_ context.Context, cat string, _ int) ([]domain.Listing, error) {
	c.calls++
	c.queries = append(c.queries, cat)
	return c.listings, c.err
}

type mapCache struct {
	data   map[string][]domain.Listing
	setErr error
}

func (m *mapCache) Get(_ context.Context, key string) ([]domain.Listing, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func (m *mapCache) Set(_ context.Context, key string, l []domain.Listing) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = l
	return nil
}

type staticPositions []domain.Position

func (s staticPositions) ListPositions(context.Context, int64) ([]domain.Position, error) {
	return s, nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestSearchIsCached(t *testing.T) {
	src := &countingSource{listings: []domain.Listing{{ID: "m1"}}}
	cache := &mapCache{data: map[string][]domain.Listing{}}
	svc := NewMarketService(src, staticPositions{}, cache, discard())
	ctx := context.Background()

	a, err := svc.SearchListings(ctx, "  Lakers ", 8)
	require.NoError(t, err)
	b, err := svc.SearchListings(ctx, "lakers", 8)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, []string{"lakers"}, src.queries)
	assert.Contains(t, cache.data, "search:lakers:8")
}

func TestEmptyResultsNotCached(t *testing.T) {
	src := &countingSource{}
	cache := &mapCache{data: map[string][]domain.Listing{}}
	svc := NewMarketService(src, staticPositions{}, cache, discard())

	for range 2 {
		got, err := svc.ListByCategory(context.Background(), "cricket", 15)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
	assert.Equal(t, 2, src.calls)
	assert.Empty(t, cache.data)
}

func TestCacheWriteFailureIgnored(t *testing.T) {
	src := &countingSource{listings: []domain.Listing{{ID: "m1"}}}
	svc := NewMarketService(src, staticPositions{}, &mapCache{data: map[string][]domain.Listing{}, setErr: errors.New("down")}, discard())

	got, err := svc.ListByCategory(context.Background(), "crypto", 15)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestNoCacheAndErrors(t *testing.T) {
	src := &countingSource{err: errors.New("gamma down")}
	svc := NewMarketService(src, staticPositions{{TokenID: "t"}}, nil, discard())

	_, err := svc.ListByCategory(context.Background(), "crypto", 15)
	assert.ErrorContains(t, err, "gamma down")

	got, err := svc.SearchListings(context.Background(), "   ", 8)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, src.calls)

	positions, err := svc.ListPositions(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, positions, 1)
}
