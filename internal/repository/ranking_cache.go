package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const rankingCachePrefix = "ranking:top:"

// RankingCache 缓存排行榜查询结果，积分变化时整体失效
type RankingCache struct {
	Redis *redis.Client
}

func NewRankingCache(rdb *redis.Client) *RankingCache {
	return &RankingCache{Redis: rdb}
}

func rankingKey(period string, limit int) string {
	return fmt.Sprintf("%s%s:%d", rankingCachePrefix, period, limit)
}

// Get 命中时将缓存内容解码到 dest
func (c *RankingCache) Get(ctx context.Context, period string, limit int, dest interface{}) (bool, error) {
	raw, err := c.Redis.Get(ctx, rankingKey(period, limit)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// 缓存内容损坏时按未命中处理并删除
		c.Redis.Del(ctx, rankingKey(period, limit))
		return false, nil
	}
	return true, nil
}

func (c *RankingCache) Set(ctx context.Context, period string, limit int, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Redis.Set(ctx, rankingKey(period, limit), raw, ttl).Err()
}

// Invalidate 删除所有排行榜缓存
func (c *RankingCache) Invalidate(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.Redis.Scan(ctx, cursor, rankingCachePrefix+"*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.Redis.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
