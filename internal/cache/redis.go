package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seongmin-dev/lockerdesk/config"
	"github.com/seongmin-dev/lockerdesk/internal/domain"
)

type RedisCache struct {
	client  *redis.Client
	gridTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, gridTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:  redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		gridTTL: gridTTL,
	}
}

func (c *RedisCache) GetGrid(ctx context.Context) ([]domain.LockerView, error) {
	data, err := c.client.Get(ctx, gridKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var grid []domain.LockerView
	if err := json.Unmarshal(data, &grid); err != nil {
		return nil, err
	}
	return grid, nil
}

func (c *RedisCache) SetGrid(ctx context.Context, grid []domain.LockerView) error {
	payload, err := json.Marshal(grid)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, gridKey(), payload, c.gridTTL).Err()
}

// InvalidateGrid drops the cached grid after a mutation so viewers never
// see a stale snapshot past the next read.
func (c *RedisCache) InvalidateGrid(ctx context.Context) error {
	return c.client.Del(ctx, gridKey()).Err()
}

// RegisterLookupFailure counts a failed lookup-code verification for the
// student id and returns the number of failures in the current window.
// The public layer uses it to slow down code guessing.
func (c *RedisCache) RegisterLookupFailure(ctx context.Context, studentID string, window time.Duration) (int64, error) {
	key := lookupFailKey(studentID)
	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		_ = c.client.Expire(ctx, key, window).Err()
	}
	return n, nil
}

func (c *RedisCache) LookupFailures(ctx context.Context, studentID string) (int64, error) {
	n, err := c.client.Get(ctx, lookupFailKey(studentID)).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func gridKey() string {
	return "cache:locker-grid"
}

func lookupFailKey(studentID string) string {
	return fmt.Sprintf("lookup-fail:%s", studentID)
}
