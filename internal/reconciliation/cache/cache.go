// Package cache stores rendered dashboard documents in Redis, keyed by scope
// and store generation so a new import never serves a stale document.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"idgov/internal/reconciliation/models"
	"idgov/pkg/platform/sentinel"
)

const keyPrefix = "idgov:dashboard"

// RedisCache is a generation-keyed document cache.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedis creates a cache over client with entries expiring after ttl.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Key returns the Redis key for a scope at a generation.
func Key(scopeKey string, generation int64) string {
	return fmt.Sprintf("%s:%d:%s", keyPrefix, generation, scopeKey)
}

// Get returns the document for scopeKey at generation, or sentinel.ErrCacheMiss.
func (c *RedisCache) Get(ctx context.Context, scopeKey string, generation int64) (*models.Document, error) {
	raw, err := c.client.Get(ctx, Key(scopeKey, generation)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrCacheMiss
		}
		return nil, fmt.Errorf("get dashboard cache: %w", err)
	}
	var doc models.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode dashboard cache: %w", err)
	}
	return &doc, nil
}

// Set stores doc for scopeKey at generation.
func (c *RedisCache) Set(ctx context.Context, scopeKey string, generation int64, doc *models.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode dashboard cache: %w", err)
	}
	if err := c.client.Set(ctx, Key(scopeKey, generation), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set dashboard cache: %w", err)
	}
	return nil
}
