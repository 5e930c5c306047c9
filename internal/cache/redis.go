// Package cache keeps published readings and service counters in Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"vibesense-service/internal/models"
)

const (
	// LatestKeyPrefix prefixes the per-user latest-reading key.
	LatestKeyPrefix = "reading:latest:"
	// RecentKeyPrefix prefixes the per-user recent-readings list.
	RecentKeyPrefix = "reading:recent:"
	// ReadingTTL is how long a cached reading survives without updates.
	ReadingTTL = 1 * time.Hour
	// RecentLimit caps the per-user recent-readings list.
	RecentLimit = 100
)

// ReadingCache caches stable readings in Redis.
type ReadingCache struct {
	client *redis.Client
	ctx    context.Context
}

// NewReadingCache connects to Redis and verifies the connection.
func NewReadingCache(addr, password string, db int) (*ReadingCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     100,
		MinIdleConns: 10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &ReadingCache{client: client, ctx: ctx}, nil
}

// SaveReading overwrites the user's latest reading and prepends it to the
// recent-readings list, trimming the list to RecentLimit.
func (c *ReadingCache) SaveReading(r models.StableReading) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	userID := r.UserID
	if userID == "" {
		userID = models.DefaultUser
	}

	pipe := c.client.Pipeline()
	pipe.Set(c.ctx, LatestKeyPrefix+userID, data, ReadingTTL)
	pipe.LPush(c.ctx, RecentKeyPrefix+userID, data)
	pipe.LTrim(c.ctx, RecentKeyPrefix+userID, 0, RecentLimit-1)

	if _, err := pipe.Exec(c.ctx); err != nil {
		return fmt.Errorf("failed to cache reading: %w", err)
	}
	return nil
}

// LatestReading returns the cached latest reading, or nil on a miss.
func (c *ReadingCache) LatestReading(userID string) (*models.StableReading, error) {
	data, err := c.client.Get(c.ctx, LatestKeyPrefix+userID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest reading: %w", err)
	}

	var r models.StableReading
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reading: %w", err)
	}
	return &r, nil
}

// RecentReadings returns up to count recent readings, newest first.
func (c *ReadingCache) RecentReadings(userID string, count int64) ([]models.StableReading, error) {
	data, err := c.client.LRange(c.ctx, RecentKeyPrefix+userID, 0, count-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get recent readings: %w", err)
	}

	readings := make([]models.StableReading, 0, len(data))
	for _, d := range data {
		var r models.StableReading
		if err := json.Unmarshal([]byte(d), &r); err != nil {
			continue
		}
		readings = append(readings, r)
	}
	return readings, nil
}

// IncrementCounter increments a service counter.
func (c *ReadingCache) IncrementCounter(key string) (int64, error) {
	return c.client.Incr(c.ctx, key).Result()
}

// GetCounter returns a counter value, zero when unset.
func (c *ReadingCache) GetCounter(key string) (int64, error) {
	val, err := c.client.Get(c.ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

// Ping checks the connection.
func (c *ReadingCache) Ping() error {
	return c.client.Ping(c.ctx).Err()
}

// Close closes the connection.
func (c *ReadingCache) Close() error {
	return c.client.Close()
}

// FlushDB clears the database (tests only).
func (c *ReadingCache) FlushDB() error {
	return c.client.FlushDB(c.ctx).Err()
}
