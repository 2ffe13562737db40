package redis

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"meetup-app-go/internal/config"
	"meetup-app-go/internal/domain/popularity"
	"meetup-app-go/pkg/logger"
)

const opTimeout = 500 * time.Millisecond

// NewClient connects and pings; a cache that cannot be reached at startup
// is a config problem, not something to degrade around silently.
func NewClient(cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return client, nil
}

// ScoreCache keeps popularity breakdowns in redis. Cache misses and redis
// failures both read as a miss; the database stays authoritative.
type ScoreCache struct {
	rdb *goredis.Client
	log logger.Logger
}

func NewScoreCache(rdb *goredis.Client, log logger.Logger) *ScoreCache {
	return &ScoreCache{rdb: rdb, log: log}
}

type cachedBreakdown struct {
	UserID     string         `json:"user_id"`
	Total      int            `json:"total"`
	Categories map[string]int `json:"categories"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (c *ScoreCache) Get(userID string) (*popularity.Breakdown, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	payload, err := c.rdb.Get(ctx, scoreKey(userID)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("redis: score cache get failed", "err", err, "user_id", userID)
		}
		return nil, false
	}

	var cached cachedBreakdown
	if err := json.Unmarshal(payload, &cached); err != nil {
		c.log.Warn("redis: score cache entry corrupt", "err", err, "user_id", userID)
		return nil, false
	}

	return &popularity.Breakdown{
		UserID:     cached.UserID,
		Total:      cached.Total,
		Categories: cached.Categories,
		UpdatedAt:  cached.UpdatedAt,
	}, true
}

func (c *ScoreCache) Set(userID string, breakdown *popularity.Breakdown, ttl time.Duration) {
	payload, err := json.Marshal(cachedBreakdown{
		UserID:     breakdown.UserID,
		Total:      breakdown.Total,
		Categories: breakdown.Categories,
		UpdatedAt:  breakdown.UpdatedAt,
	})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.rdb.Set(ctx, scoreKey(userID), payload, ttl).Err(); err != nil {
		c.log.Warn("redis: score cache set failed", "err", err, "user_id", userID)
	}
}

func (c *ScoreCache) Delete(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.rdb.Del(ctx, scoreKey(userID)).Err(); err != nil {
		c.log.Warn("redis: score cache delete failed", "err", err, "user_id", userID)
	}
}

func scoreKey(userID string) string {
	return "score:" + userID
}
