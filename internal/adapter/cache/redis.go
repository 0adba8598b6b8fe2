package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/zerodelay-service/internal/domain"
	"github.com/go-redis/redis/v8"
)

const keyPrefix = "zerodelay:summary:"

// Redis is a summary cache shared by every service instance. Expiry is
// delegated to Redis key TTLs.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to the Redis instance at url (redis://host:port/db).
func NewRedis(url string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{client: redis.NewClient(opt), ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (domain.Summary, bool, error) {
	raw, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Summary{}, false, nil
	}
	if err != nil {
		return domain.Summary{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var s domain.Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return domain.Summary{}, false, fmt.Errorf("decode cached summary %s: %w", key, err)
	}
	return s, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, summary domain.Summary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Ping checks connectivity; used as a readiness probe.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
