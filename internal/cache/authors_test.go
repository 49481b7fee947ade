package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locustsocial/feedsync/internal/cache"
	"github.com/locustsocial/feedsync/internal/domain"
	"github.com/locustsocial/feedsync/internal/logger"
)

func newTestCache(t *testing.T) (*cache.AuthorCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return cache.NewAuthorCache(client, time.Minute, logger.NewNop()), mr
}

func TestAuthorCache_RoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	author := &domain.Author{
		ID:          "user-1",
		Handle:      "jane",
		DisplayName: "Jane",
	}
	c.Set(ctx, author)

	got := c.Get(ctx, "user-1")
	require.NotNil(t, got)
	assert.Equal(t, *author, *got)
}

func TestAuthorCache_MissReturnsNil(t *testing.T) {
	c, _ := newTestCache(t)
	assert.Nil(t, c.Get(context.Background(), "unknown"))
}

func TestAuthorCache_EntriesExpire(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, &domain.Author{ID: "user-1", Handle: "jane"})
	mr.FastForward(2 * time.Minute)

	assert.Nil(t, c.Get(ctx, "user-1"))
}

func TestAuthorCache_Invalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, &domain.Author{ID: "user-1", Handle: "jane"})
	require.NoError(t, c.Invalidate(ctx, "user-1"))

	assert.Nil(t, c.Get(ctx, "user-1"))
}

func TestAuthorCache_CorruptEntryDegradesToMiss(t *testing.T) {
	c, mr := newTestCache(t)

	require.NoError(t, mr.Set("author:user-1", "not-json"))
	assert.Nil(t, c.Get(context.Background(), "user-1"))
}
