package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kmateo04/travelmarket/config"
	"github.com/kmateo04/travelmarket/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client       *redis.Client
	schedulesTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, schedulesTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:       redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		schedulesTTL: schedulesTTL,
	}
}

func (c *RedisCache) GetBusinessSchedules(ctx context.Context, businessID string) ([]domain.Schedule, error) {
	data, err := c.client.Get(ctx, businessSchedulesKey(businessID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var schedules []domain.Schedule
	if err := json.Unmarshal(data, &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

func (c *RedisCache) SetBusinessSchedules(ctx context.Context, businessID string, schedules []domain.Schedule) error {
	payload, err := json.Marshal(schedules)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, businessSchedulesKey(businessID), payload, c.schedulesTTL).Err()
}

// InvalidateBusinessSchedules drops the cached list after any schedule write.
func (c *RedisCache) InvalidateBusinessSchedules(ctx context.Context, businessID string) error {
	return c.client.Del(ctx, businessSchedulesKey(businessID)).Err()
}

// AcquireScheduleLock serializes seat accounting for one schedule: the
// holder recomputes availability and conditionally writes before
// releasing. The TTL bounds how long a crashed holder can block others.
func (c *RedisCache) AcquireScheduleLock(ctx context.Context, scheduleID string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, scheduleLockKey(scheduleID), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseScheduleLock(ctx context.Context, scheduleID string) error {
	return c.client.Del(ctx, scheduleLockKey(scheduleID)).Err()
}

func businessSchedulesKey(businessID string) string {
	return fmt.Sprintf("cache:schedules:business:%s", businessID)
}

func scheduleLockKey(scheduleID string) string {
	return fmt.Sprintf("lock:schedule:%s", scheduleID)
}
