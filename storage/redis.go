// storage/redis.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/CreativeUnicorns/localeprefs"
)

// redisKeyPrefix namespaces the per-client hashes.
const redisKeyPrefix = "localeprefs:"

// redisClient is the subset of *redis.Client used by RedisStorage.
type redisClient interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisStorage keeps each client's entries in one Redis hash.
type RedisStorage struct {
	client redisClient
}

// NewRedisStorage connects to Redis and verifies the connection.
func NewRedisStorage(ctx context.Context, addr, password string, db int) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStorage{client: client}, nil
}

func clientHash(clientID string) string {
	return redisKeyPrefix + clientID
}

func (s *RedisStorage) Get(ctx context.Context, clientID, key string) ([]byte, error) {
	data, err := s.client.HGet(ctx, clientHash(clientID), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, localeprefs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return data, nil
}

func (s *RedisStorage) Set(ctx context.Context, clientID, key string, value []byte) error {
	if err := s.client.HSet(ctx, clientHash(clientID), key, value).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, clientID, key string) error {
	n, err := s.client.HDel(ctx, clientHash(clientID), key).Result()
	if err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	if n == 0 {
		return localeprefs.ErrNotFound
	}
	return nil
}

func (s *RedisStorage) Usage(ctx context.Context, clientID string) (int64, error) {
	fields, err := s.client.HGetAll(ctx, clientHash(clientID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read redis hash: %w", err)
	}

	var used int64
	for key, value := range fields {
		used += entrySize(key, []byte(value))
	}
	return used, nil
}

func (s *RedisStorage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}
