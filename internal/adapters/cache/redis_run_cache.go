package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"run-dispatch-service/internal/domain"
)

// RedisRunCache is a short-TTL cache of per-driver run feeds. Driver clients
// poll their run list every few seconds; this absorbs that read load. The
// dispatcher and execution engine invalidate a driver's feed on every state
// change, and the TTL bounds staleness if an invalidation is lost.
type RedisRunCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisRunCache(client *redis.Client, ttl time.Duration) *RedisRunCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisRunCache{Client: client, TTL: ttl}
}

func driverRunsKey(driverID int64) string {
	return fmt.Sprintf("runs:driver:%d", driverID)
}

// Return the cached feed for a driver, or (nil, nil) on miss.
func (c *RedisRunCache) GetDriverRuns(ctx context.Context, driverID int64) ([]*domain.Run, error) {
	if c.Client == nil {
		return nil, errors.New("run cache: client is nil")
	}

	raw, err := c.Client.Get(ctx, driverRunsKey(driverID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get driver runs cache: driver %d: %w", driverID, err)
	}

	var runs []*domain.Run
	if err := json.Unmarshal(raw, &runs); err != nil {
		// A corrupt entry behaves like a miss; the next put overwrites it.
		return nil, nil
	}

	return runs, nil
}

// Store a driver's feed with the configured TTL.
func (c *RedisRunCache) PutDriverRuns(ctx context.Context, driverID int64, runs []*domain.Run) error {
	if c.Client == nil {
		return errors.New("run cache: client is nil")
	}

	raw, err := json.Marshal(runs)
	if err != nil {
		return fmt.Errorf("put driver runs cache: marshal driver %d feed: %w", driverID, err)
	}

	if err := c.Client.Set(ctx, driverRunsKey(driverID), raw, c.TTL).Err(); err != nil {
		return fmt.Errorf("put driver runs cache: driver %d: %w", driverID, err)
	}

	return nil
}

// Drop a driver's feed after a state change.
func (c *RedisRunCache) InvalidateDriver(ctx context.Context, driverID int64) error {
	if c.Client == nil {
		return errors.New("run cache: client is nil")
	}

	if err := c.Client.Del(ctx, driverRunsKey(driverID)).Err(); err != nil {
		return fmt.Errorf("invalidate driver runs cache: driver %d: %w", driverID, err)
	}

	return nil
}
