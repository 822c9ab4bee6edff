package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"xparking/internal/config"
	"xparking/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisExitCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient creates a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisExitCache(client *redis.Client, ttl time.Duration) *RedisExitCache {
	return &RedisExitCache{
		client: client,
		ttl:    ttl,
	}
}

func exitVerifyKey(plate string) string {
	return fmt.Sprintf("exit_verify:%s", plate)
}

func (r *RedisExitCache) GetExitVerification(ctx context.Context, plate string) (*models.ExitVerification, bool, error) {
	if r.client == nil {
		return nil, false, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, exitVerifyKey(plate)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get exit verification from redis: %w", err)
	}

	var v models.ExitVerification
	if err := json.Unmarshal([]byte(val), &v); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal exit verification: %w", err)
	}

	return &v, true, nil
}

func (r *RedisExitCache) SetExitVerification(ctx context.Context, plate string, v *models.ExitVerification) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal exit verification: %w", err)
	}

	if err := r.client.Set(ctx, exitVerifyKey(plate), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set exit verification in redis: %w", err)
	}

	return nil
}

func (r *RedisExitCache) InvalidateExitVerification(ctx context.Context, plate string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, exitVerifyKey(plate)).Err(); err != nil {
		return fmt.Errorf("failed to delete exit verification from redis: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
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
