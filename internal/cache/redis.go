package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Domenick1991/parkus/config"
	"github.com/Domenick1991/parkus/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache keeps the windows of a spot that were available when last read.
// Entries are dropped on every window or booking mutation of the spot, and each
// drop bumps a per-spot version so a fill that read the store before the
// mutation cannot be written afterwards.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(cfg config.RedisConfig, ttl time.Duration) *RedisCache {
	return NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}), ttl)
}

func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

type cachedWindow struct {
	ID        int64     `json:"id"`
	SpotID    int64     `json:"spot_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
}

// GetAvailableWindows returns a nil slice on a miss, together with the spot's
// current version for a following SetAvailableWindows.
func (c *RedisCache) GetAvailableWindows(ctx context.Context, spotID int64) ([]domain.Window, int64, error) {
	vals, err := c.client.MGet(ctx, availableKey(spotID), versionKey(spotID)).Result()
	if err != nil {
		return nil, 0, err
	}
	version, err := parseVersion(vals[1])
	if err != nil {
		return nil, 0, err
	}
	data, ok := vals[0].(string)
	if !ok {
		return nil, version, nil
	}

	var cached []cachedWindow
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		return nil, 0, err
	}
	windows := make([]domain.Window, 0, len(cached))
	for _, w := range cached {
		windows = append(windows, domain.Window{
			ID:        w.ID,
			SpotID:    w.SpotID,
			StartTime: w.StartTime,
			EndTime:   w.EndTime,
			CreatedAt: w.CreatedAt,
		})
	}
	return windows, version, nil
}

// SetAvailableWindows stores windows only while the spot is still at version.
// A write that lost to an InvalidateSpot is dropped without error.
func (c *RedisCache) SetAvailableWindows(ctx context.Context, spotID, version int64, windows []domain.Window) error {
	cached := make([]cachedWindow, 0, len(windows))
	for _, w := range windows {
		cached = append(cached, cachedWindow{ID: w.ID, SpotID: w.SpotID, StartTime: w.StartTime, EndTime: w.EndTime, CreatedAt: w.CreatedAt})
	}
	payload, err := json.Marshal(cached)
	if err != nil {
		return err
	}

	vkey := versionKey(spotID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vkey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		v, err := parseVersion(current)
		if err != nil {
			return err
		}
		if v != version {
			return errStaleVersion
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, availableKey(spotID), payload, c.ttl)
			return nil
		})
		return err
	}, vkey)
	if errors.Is(err, errStaleVersion) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

// InvalidateSpot drops the entry and bumps the version in one transaction.
func (c *RedisCache) InvalidateSpot(ctx context.Context, spotID int64) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(spotID))
		pipe.Del(ctx, availableKey(spotID))
		return nil
	})
	return err
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

var errStaleVersion = errors.New("cache: spot version changed")

func availableKey(spotID int64) string {
	return fmt.Sprintf("cache:spot:%d:available_windows", spotID)
}

func versionKey(spotID int64) string {
	return fmt.Sprintf("cache:spot:%d:version", spotID)
}

// parseVersion reads a version key value; a missing key is version 0.
func parseVersion(v any) (int64, error) {
	switch v := v.(type) {
	case nil:
		return 0, nil
	case string:
		if v == "" {
			return 0, nil
		}
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("cache: unexpected version value %T", v)
	}
}
