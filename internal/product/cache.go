package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
)

type Cache interface {
	Get(ctx context.Context, id uuid.UUID) (*Product, bool, error)
	Set(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// NopCache is used when no Redis is configured.
type NopCache struct{}

func (NopCache) Get(context.Context, uuid.UUID) (*Product, bool, error) { return nil, false, nil }
func (NopCache) Set(context.Context, *Product) error                   { return nil }
func (NopCache) Delete(context.Context, uuid.UUID) error               { return nil }

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(id uuid.UUID) string {
	return "product:" + id.String()
}

func (c *RedisCache) Get(ctx context.Context, id uuid.UUID) (*Product, bool, error) {
	value, err := c.client.Get(ctx, cacheKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: failed to get product %s: %w", id, err)
	}

	var p Product
	if err := json.Unmarshal(value, &p); err != nil {
		return nil, false, fmt.Errorf("cache: failed to decode product %s: %w", id, err)
	}
	return &p, true, nil
}

func (c *RedisCache) Set(ctx context.Context, p *Product) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("cache: failed to encode product %s: %w", p.ID, err)
	}
	return c.client.Set(ctx, cacheKey(p.ID), payload, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, id uuid.UUID) error {
	return c.client.Del(ctx, cacheKey(id)).Err()
}
