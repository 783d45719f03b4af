package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedPost struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func setupCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return New(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func TestAside_FetchesAndPopulatesCache(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	fetches := 0
	var got cachedPost
	err := c.Aside(ctx, PostKey(1), &got, PostTTL, func() error {
		fetches++
		got = cachedPost{ID: 1, Title: "Sunset"}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fetches)
	assert.True(t, mr.Exists(PostKey(1)))

	// Second read is served from the cache.
	var again cachedPost
	err = c.Aside(ctx, PostKey(1), &again, PostTTL, func() error {
		fetches++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fetches)
	assert.Equal(t, "Sunset", again.Title)
}

func TestAside_CorruptEntryFallsBackToFetch(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(PostKey(2), "{not json"))

	var got cachedPost
	err := c.Aside(ctx, PostKey(2), &got, time.Minute, func() error {
		got = cachedPost{ID: 2, Title: "Harbor"}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Harbor", got.Title)
}

func TestAside_WithoutClientAlwaysFetches(t *testing.T) {
	ctx := context.Background()

	for _, c := range []*Cache{nil, New(nil)} {
		fetches := 0
		var got cachedPost
		for i := 0; i < 2; i++ {
			err := c.Aside(ctx, PostKey(3), &got, time.Minute, func() error {
				fetches++
				return nil
			})
			require.NoError(t, err)
		}
		assert.Equal(t, 2, fetches)
	}
}

func TestInvalidatePost(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(PostKey(4), `{"id":4}`))
	c.InvalidatePost(ctx, 4)
	assert.False(t, mr.Exists(PostKey(4)))

	// Invalidating through a nil handle is a no-op, not a panic.
	var none *Cache
	none.InvalidatePost(ctx, 4)
}
