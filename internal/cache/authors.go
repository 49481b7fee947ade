// Package cache provides the short-TTL author cache used during feed
// hydration, so a page of posts by the same author costs one user lookup
// instead of fifteen.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/locustsocial/feedsync/internal/domain"
	"github.com/locustsocial/feedsync/internal/logger"
)

const connectionTimeout = 2 * time.Second

// DefaultAuthorTTL keeps authors fresh enough that profile edits show up
// within a minute.
const DefaultAuthorTTL = time.Minute

// NewRedisClient creates a Redis client and verifies the connection.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// AuthorCache caches resolved authors in Redis with a short TTL. All cache
// failures degrade to a miss; the store read path is the source of truth.
type AuthorCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewAuthorCache creates an AuthorCache.
func NewAuthorCache(client *redis.Client, ttl time.Duration, log logger.Logger) *AuthorCache {
	if ttl <= 0 {
		ttl = DefaultAuthorTTL
	}
	return &AuthorCache{client: client, ttl: ttl, logger: log}
}

func (c *AuthorCache) key(uid string) string {
	return "author:" + uid
}

// Get returns the cached author, or nil on a miss.
func (c *AuthorCache) Get(ctx context.Context, uid string) *domain.Author {
	data, err := c.client.Get(ctx, c.key(uid)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("author cache read failed",
				logger.String("uid", uid),
				logger.Error(err))
		}
		return nil
	}

	var author domain.Author
	if err := json.Unmarshal(data, &author); err != nil {
		c.logger.Warn("author cache entry corrupt",
			logger.String("uid", uid),
			logger.Error(err))
		return nil
	}
	return &author
}

// Set stores the author under the cache TTL. Errors are logged, not
// returned; the cache is an optimization.
func (c *AuthorCache) Set(ctx context.Context, author *domain.Author) {
	data, err := json.Marshal(author)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(author.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("author cache write failed",
			logger.String("uid", author.ID),
			logger.Error(err))
	}
}

// Invalidate drops a cached author, e.g. after a profile edit.
func (c *AuthorCache) Invalidate(ctx context.Context, uid string) error {
	if err := c.client.Del(ctx, c.key(uid)).Err(); err != nil {
		return fmt.Errorf("invalidate author %s: %w", uid, err)
	}
	return nil
}
