package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sailingloc/boatbooking/config"
	"github.com/sailingloc/boatbooking/internal/domain"
)

type RedisCache struct {
	client     *redis.Client
	boatsTTL   time.Duration
	periodsTTL time.Duration
	flowTTL    time.Duration
}

func NewRedisCache(cfg config.RedisConfig, boatsTTL, periodsTTL, flowTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		boatsTTL:   boatsTTL,
		periodsTTL: periodsTTL,
		flowTTL:    flowTTL,
	}
}

func (c *RedisCache) GetBoats(ctx context.Context) ([]domain.Boat, error) {
	data, err := c.client.Get(ctx, boatsKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var boats []domain.Boat
	if err := json.Unmarshal(data, &boats); err != nil {
		return nil, err
	}
	return boats, nil
}

func (c *RedisCache) SetBoats(ctx context.Context, boats []domain.Boat) error {
	payload, err := json.Marshal(boats)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, boatsKey(), payload, c.boatsTTL).Err()
}

// GetPeriods returns the cached period snapshot for a boat, or (nil, nil)
// on a miss. The snapshot is advisory only; the materialization transaction
// always re-derives from Postgres.
func (c *RedisCache) GetPeriods(ctx context.Context, boatID string) ([]domain.UnavailablePeriod, error) {
	data, err := c.client.Get(ctx, periodsKey(boatID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var periods []domain.UnavailablePeriod
	if err := json.Unmarshal(data, &periods); err != nil {
		return nil, err
	}
	return periods, nil
}

func (c *RedisCache) SetPeriods(ctx context.Context, boatID string, periods []domain.UnavailablePeriod) error {
	payload, err := json.Marshal(periods)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, periodsKey(boatID), payload, c.periodsTTL).Err()
}

func (c *RedisCache) InvalidatePeriods(ctx context.Context, boatID string) error {
	return c.client.Del(ctx, periodsKey(boatID)).Err()
}

// AcquireBoatLock bounds a boat's materialization critical section.
func (c *RedisCache) AcquireBoatLock(ctx context.Context, boatID string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, boatLockKey(boatID), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseBoatLock(ctx context.Context, boatID string) error {
	return c.client.Del(ctx, boatLockKey(boatID)).Err()
}

// SaveFlow stores reservation flow state under its id so a flow survives
// client reconnects. TTL-bounded: abandoned flows expire on their own.
func (c *RedisCache) SaveFlow(ctx context.Context, id string, flow interface{}) error {
	payload, err := json.Marshal(flow)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flowKey(id), payload, c.flowTTL).Err()
}

func (c *RedisCache) GetFlow(ctx context.Context, id string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, flowKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	return true, json.Unmarshal(data, dest)
}

func (c *RedisCache) DeleteFlow(ctx context.Context, id string) error {
	return c.client.Del(ctx, flowKey(id)).Err()
}

func boatsKey() string {
	return "cache:boats"
}

func periodsKey(boatID string) string {
	return fmt.Sprintf("cache:periods:boat:%s", boatID)
}

func boatLockKey(boatID string) string {
	return fmt.Sprintf("lock:boat:%s", boatID)
}

func flowKey(id string) string {
	return fmt.Sprintf("flow:%s", id)
}
