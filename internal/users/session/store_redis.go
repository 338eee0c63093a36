// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/authcore/internal/platform/constants"
)

// RedisCache implements [Cache] with one JSON string key per token hash.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis-backed [Cache].
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Key returns the Redis key holding the verdict for tokenHash.
func Key(tokenHash string) string {
	return constants.RedisPrefixSession + tokenHash
}

/*
Get retrieves a cached verdict.

Returns:
  - *Verdict: The verdict, or nil on a miss
  - error: Connectivity or decoding failures
*/
func (repository *RedisCache) Get(context context.Context, tokenHash string) (*Verdict, error) {
	payload, err := repository.client.Get(context, Key(tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis_session_cache_get_failed: %w", err)
	}

	var verdict Verdict
	if err := json.Unmarshal(payload, &verdict); err != nil {
		return nil, fmt.Errorf("redis_session_cache_decode_failed: %w", err)
	}

	return &verdict, nil
}

/*
Put stores a verdict, overwriting any existing entry.

Description: A non-positive ttl writes nothing, since Redis would keep the key
forever.
*/
func (repository *RedisCache) Put(context context.Context, tokenHash string, verdict Verdict, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("redis_session_cache_encode_failed: %w", err)
	}

	if err := repository.client.Set(context, Key(tokenHash), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis_session_cache_set_failed: %w", err)
	}

	return nil
}

/*
PutIfAbsent stores a verdict with SET NX.

Returns:
  - bool: Whether the entry was written
  - error: Connectivity failures
*/
func (repository *RedisCache) PutIfAbsent(context context.Context, tokenHash string, verdict Verdict, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}

	payload, err := json.Marshal(verdict)
	if err != nil {
		return false, fmt.Errorf("redis_session_cache_encode_failed: %w", err)
	}

	written, err := repository.client.SetNX(context, Key(tokenHash), payload, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis_session_cache_setnx_failed: %w", err)
	}

	return written, nil
}
