package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/bakery/pkg/config"
	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss is returned by the Get helpers when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

const (
	catalogVersionKey   = "catalog:version"
	idempotencyInFlight = "pending"
)

type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return NewRedisRepositoryWithClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}), cfg)
}

func NewRedisRepositoryWithClient(client *redis.Client, cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{client: client, config: cfg}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

func (r *RedisRepository) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return val, err
}

func (r *RedisRepository) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// CatalogVersion is the generation number embedded in catalog cache keys.
func (r *RedisRepository) CatalogVersion(ctx context.Context) (int64, error) {
	v, err := r.client.Get(ctx, catalogVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// BumpCatalogVersion invalidates every cached catalog page at once; the
// stale pages expire on their own TTL.
func (r *RedisRepository) BumpCatalogVersion(ctx context.Context) error {
	return r.client.Incr(ctx, catalogVersionKey).Err()
}

func catalogKey(version int64, key string) string {
	return fmt.Sprintf("catalog:v%d:%s", version, key)
}

func (r *RedisRepository) GetCatalogPage(ctx context.Context, key string, dest interface{}) error {
	version, err := r.CatalogVersion(ctx)
	if err != nil {
		return err
	}
	return r.GetJSON(ctx, catalogKey(version, key), dest)
}

func (r *RedisRepository) SetCatalogPage(ctx context.Context, key string, page interface{}, ttl time.Duration) error {
	version, err := r.CatalogVersion(ctx)
	if err != nil {
		return err
	}
	return r.SetJSON(ctx, catalogKey(version, key), page, ttl)
}

func deliveryKey(key string) string {
	return "delivery:" + key
}

func (r *RedisRepository) GetDelivery(ctx context.Context, key string, dest interface{}) error {
	return r.GetJSON(ctx, deliveryKey(key), dest)
}

func (r *RedisRepository) SetDelivery(ctx context.Context, key string, result interface{}, ttl time.Duration) error {
	return r.SetJSON(ctx, deliveryKey(key), result, ttl)
}

func idempotencyKey(userID, key string) string {
	return fmt.Sprintf("idem:%s:%s", userID, key)
}

// ClaimIdempotencyKey reserves a checkout key with SETNX. When the key was
// already claimed it returns false together with the stored order id,
// which is empty while the first request is still in flight.
func (r *RedisRepository) ClaimIdempotencyKey(ctx context.Context, userID, key string, ttl time.Duration) (bool, string, error) {
	k := idempotencyKey(userID, key)
	ok, err := r.client.SetNX(ctx, k, idempotencyInFlight, ttl).Result()
	if err != nil {
		return false, "", err
	}
	if ok {
		return true, "", nil
	}
	val, err := r.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}
	if val == idempotencyInFlight {
		return false, "", nil
	}
	return false, val, nil
}

// CompleteIdempotencyKey stores the order created for a claimed key.
func (r *RedisRepository) CompleteIdempotencyKey(ctx context.Context, userID, key, orderID string, ttl time.Duration) error {
	return r.client.Set(ctx, idempotencyKey(userID, key), orderID, ttl).Err()
}

// ReleaseIdempotencyKey drops a claim whose request failed so it can be retried.
func (r *RedisRepository) ReleaseIdempotencyKey(ctx context.Context, userID, key string) error {
	return r.client.Del(ctx, idempotencyKey(userID, key)).Err()
}
