package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hubbook/internal/config"
	"hubbook/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisAvailabilityCache keeps computed daily views in Redis. Every
// operation carries a bounded timeout so a slow Redis can never stall the
// booking path.
type RedisAvailabilityCache struct {
	client    *redis.Client
	opTimeout time.Duration
}

// NewRedisClient creates a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisAvailabilityCache(client *redis.Client, opTimeout time.Duration) *RedisAvailabilityCache {
	if opTimeout <= 0 {
		opTimeout = models.CacheOpTimeout
	}
	return &RedisAvailabilityCache{client: client, opTimeout: opTimeout}
}

func availabilityKey(hubID int64, date string) string {
	return fmt.Sprintf("availability:%d:%s", hubID, date)
}

func (r *RedisAvailabilityCache) Get(ctx context.Context, hubID int64, date string) (*models.DailyAvailability, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	val, err := r.client.Get(ctx, availabilityKey(hubID, date)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get availability from redis: %w", err)
	}

	var view models.DailyAvailability
	if err := json.Unmarshal([]byte(val), &view); err != nil {
		return nil, fmt.Errorf("failed to unmarshal availability: %w", err)
	}
	return &view, nil
}

func (r *RedisAvailabilityCache) Set(ctx context.Context, view *models.DailyAvailability, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to marshal availability: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	if err := r.client.Set(ctx, availabilityKey(view.HubID, view.Date), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set availability in redis: %w", err)
	}
	return nil
}

func (r *RedisAvailabilityCache) Invalidate(ctx context.Context, hubID int64, date string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	if err := r.client.Del(ctx, availabilityKey(hubID, date)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate availability: %w", err)
	}
	return nil
}

// InvalidateHub drops every cached date of one hub. SCAN keeps it safe on a
// shared Redis.
func (r *RedisAvailabilityCache) InvalidateHub(ctx context.Context, hubID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	pattern := fmt.Sprintf("availability:%d:*", hubID)
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to invalidate hub keys: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan hub keys: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
