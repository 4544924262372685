package bakecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/voxel-core/internal/logging"
	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "voxel:baked:"

// RedisStore хранит запечённые файлы в Redis с ограниченным временем жизни.
// Подходит для общего кеша нескольких процессов: потерянная запись просто пересчитывается.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore подключается к Redis. ttl == 0 - записи без истечения.
func NewRedisStore(addr string, db int, ttl time.Duration) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	// Проверяем соединение
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetBakeLogger().Info("Redis bake cache initialized: %s (TTL: %v)", addr, ttl)
	return &RedisStore{client: rdb, ttl: ttl}, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %w", err)
	}
	return val, nil
}

func (r *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, redisKeyPrefix+key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete error: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
