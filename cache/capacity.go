package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/BerniceZTT/crm_followup/models"
)

const (
	capacityKey             = "crm:employee-capacity"
	defaultCapacityLifetime = time.Minute
)

// CapacityCache 员工负载缓存。
// 负载以CRM服务为准，这里只缓存最近一次查询结果。
type CapacityCache interface {
	Get(ctx context.Context) ([]models.EmployeeCapacity, error)
	Set(ctx context.Context, list []models.EmployeeCapacity) error
	Evict(ctx context.Context) error
}

type redisCapacityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCapacityCache 创建redis缓存
func NewRedisCapacityCache(client *redis.Client, ttl time.Duration) CapacityCache {
	if ttl <= 0 {
		ttl = defaultCapacityLifetime
	}
	return &redisCapacityCache{client: client, ttl: ttl}
}

// Get 未命中时返回 nil, nil
func (r *redisCapacityCache) Get(ctx context.Context) ([]models.EmployeeCapacity, error) {
	res, err := r.client.Get(ctx, capacityKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var list []models.EmployeeCapacity
	if err := msgpack.Unmarshal(res, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *redisCapacityCache) Set(ctx context.Context, list []models.EmployeeCapacity) error {
	encoded, err := msgpack.Marshal(list)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, capacityKey, encoded, r.ttl).Err()
}

func (r *redisCapacityCache) Evict(ctx context.Context) error {
	return r.client.Del(ctx, capacityKey).Err()
}

type noopCapacityCache struct{}

// NewNoopCapacityCache 未配置redis时使用，总是未命中
func NewNoopCapacityCache() CapacityCache {
	return noopCapacityCache{}
}

func (noopCapacityCache) Get(context.Context) ([]models.EmployeeCapacity, error) { return nil, nil }
func (noopCapacityCache) Set(context.Context, []models.EmployeeCapacity) error   { return nil }
func (noopCapacityCache) Evict(context.Context) error                            { return nil }
