package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/deskforge/servicedesk/internal/domain"
)

const listCachePrefix = "tickets:list:"

// ListCache keeps recently served ticket lists in Redis, keyed by viewer
// scope. Every mutating call invalidates the whole cache so the next read
// refetches from the authoritative store; cached lists are never patched in
// place.
type ListCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewListCache wraps a Redis client. A nil client disables caching.
func NewListCache(r *Redis, ttl time.Duration, logger *zap.Logger) *ListCache {
	var client *redis.Client
	if r != nil {
		client = r.Client
	}
	return &ListCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached list for the scope key, if present and decodable.
func (c *ListCache) Get(ctx context.Context, scopeKey string) ([]domain.Ticket, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, listCachePrefix+scopeKey).Bytes()
	if err != nil {
		return nil, false
	}
	var tickets []domain.Ticket
	if err := json.Unmarshal(raw, &tickets); err != nil {
		c.logger.Warn("discarding undecodable cached list", zap.String("scope", scopeKey), zap.Error(err))
		return nil, false
	}
	return tickets, true
}

// Set stores a list under the scope key.
func (c *ListCache) Set(ctx context.Context, scopeKey string, tickets []domain.Ticket) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(tickets)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, listCachePrefix+scopeKey, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("list cache set failed", zap.Error(err))
	}
}

// Invalidate drops every cached list. Called after any ticket mutation.
func (c *ListCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	iter := c.client.Scan(ctx, 0, listCachePrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Warn("list cache invalidate failed", zap.String("key", iter.Val()), zap.Error(err))
		}
	}
}
