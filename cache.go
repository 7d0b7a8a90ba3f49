package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"payledger/models"
	"payledger/pkg/logging"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var redisClient *redis.Client

// initCache connects to Redis. On failure the client stays nil and every
// cache helper becomes a no-op.
func initCache(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.Ping(pingCtx).Result(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	redisClient = client
	logging.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	return nil
}

func cacheEnabled() bool { return redisClient != nil }

func staffCacheKey(id uint) string        { return fmt.Sprintf("staff:%d", id) }
func summaryCacheKey(scope string) string { return "summary:" + scope }

func cacheStaff(ctx context.Context, s *models.Staff) {
	if !cacheEnabled() {
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := redisClient.Set(ctx, staffCacheKey(s.ID), data, cfg.CacheTTL).Err(); err != nil {
		logging.Debug("failed to cache staff", zap.Uint("id", s.ID), zap.Error(err))
	}
}

func getCachedStaff(ctx context.Context, id uint) (*models.Staff, error) {
	if !cacheEnabled() {
		return nil, nil
	}
	data, err := redisClient.Get(ctx, staffCacheKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get staff from cache: %w", err)
	}
	var s models.Staff
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached staff: %w", err)
	}
	return &s, nil
}

func deleteCachedStaff(ctx context.Context, id uint) {
	if !cacheEnabled() {
		return
	}
	if err := redisClient.Del(ctx, staffCacheKey(id)).Err(); err != nil {
		logging.Debug("failed to delete cached staff", zap.Uint("id", id), zap.Error(err))
	}
}

// monthlyTotal is one row of the payments summary, also the cached shape.
type monthlyTotal struct {
	Month string `json:"month"`
	Total int64  `json:"total"`
}

func cacheSummary(ctx context.Context, scope string, rows []monthlyTotal) {
	if !cacheEnabled() {
		return
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return
	}
	if err := redisClient.Set(ctx, summaryCacheKey(scope), data, cfg.CacheTTL).Err(); err != nil {
		logging.Debug("failed to cache summary", zap.String("scope", scope), zap.Error(err))
	}
}

func getCachedSummary(ctx context.Context, scope string) ([]monthlyTotal, error) {
	if !cacheEnabled() {
		return nil, nil
	}
	data, err := redisClient.Get(ctx, summaryCacheKey(scope)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get summary from cache: %w", err)
	}
	var rows []monthlyTotal
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached summary: %w", err)
	}
	return rows, nil
}

// invalidateSummaries drops every cached summary. Payments are low volume, a
// full sweep is cheaper than tracking which scopes a mutation touches.
func invalidateSummaries(ctx context.Context) {
	if !cacheEnabled() {
		return
	}
	iter := redisClient.Scan(ctx, 0, summaryCacheKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		if err := redisClient.Del(ctx, iter.Val()).Err(); err != nil {
			logging.Debug("failed to delete cached summary", zap.String("key", iter.Val()), zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		logging.Debug("summary cache sweep failed", zap.Error(err))
	}
}

// rateLimit implements a sliding window over a Redis sorted set. When Redis
// is down it allows the request rather than locking everyone out.
func rateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	if !cacheEnabled() {
		return true, nil
	}
	pipe := redisClient.Pipeline()
	now := time.Now().UnixNano()
	key = fmt.Sprintf("ratelimit:%s", key)

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-per.Nanoseconds()))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, per)

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}
	count := cmds[2].(*redis.IntCmd).Val()
	return count <= int64(limit), nil
}
