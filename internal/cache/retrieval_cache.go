// Package cache provides a Redis read-through cache for retrieval results.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"careercompass/internal/logger"
	"careercompass/internal/model"
)

// RetrievalCache memoizes top-k retrieval results per query. Keys include the
// index build timestamp, so a rebuilt index naturally invalidates every entry
// written against the previous one. Cache failures are logged and treated as
// misses; retrieval never fails because Redis is down.
type RetrievalCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewRetrievalCache(client *redisv9.Client, ttl time.Duration) *RetrievalCache {
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	return &RetrievalCache{client: client, ttl: ttl}
}

func (c *RetrievalCache) Get(ctx context.Context, collection string, builtAt time.Time, query string, k int) ([]model.RetrievalResult, bool) {
	key := c.key(collection, builtAt, query, k)
	raw, err := c.client.Get(ctx, key).Result()
	if err == redisv9.Nil {
		return nil, false
	}
	if err != nil {
		logger.L().Warn("redis get retrieval results failed", zap.Error(err))
		return nil, false
	}

	var results []model.RetrievalResult
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		logger.L().Warn("unmarshal cached retrieval results failed", zap.Error(err))
		return nil, false
	}
	return results, true
}

func (c *RetrievalCache) Set(ctx context.Context, collection string, builtAt time.Time, query string, k int, results []model.RetrievalResult) {
	payload, err := json.Marshal(results)
	if err != nil {
		logger.L().Warn("marshal retrieval results for cache failed", zap.Error(err))
		return
	}
	key := c.key(collection, builtAt, query, k)
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		logger.L().Warn("redis set retrieval results failed", zap.Error(err))
	}
}

func (c *RetrievalCache) key(collection string, builtAt time.Time, query string, k int) string {
	sum := sha1.Sum([]byte(query))
	return fmt.Sprintf("career:similar:%s:%d:%d:%s",
		collection, builtAt.UnixNano(), k, hex.EncodeToString(sum[:]))
}
