package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/danielhafezi/BetaAnalysisTool/internal/domain/models"
	"github.com/danielhafezi/BetaAnalysisTool/internal/service/cache"

	"github.com/redis/go-redis/v9"
)

const redisChunkPrefix = "betatool:chunk:"

// RedisChunkStore keeps candle chunks as JSON values with a server-side
// TTL. Eviction is delegated to Redis expiry, so Sweep is a no-op.
type RedisChunkStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisChunkStore(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisChunkStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisChunkStore{rdb: rdb, ttl: ttl}, nil
}

func (s *RedisChunkStore) Get(ctx context.Context, instrument string, start, end time.Time) ([]models.Candle, bool, error) {
	key := redisChunkPrefix + cache.ChunkKey(instrument, start, end)

	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get chunk: %w", err)
	}

	var candles []models.Candle
	if err := json.Unmarshal(b, &candles); err != nil {
		return nil, false, fmt.Errorf("decode chunk: %w", err)
	}
	if len(candles) == 0 {
		return nil, false, nil
	}
	if candles[0].Timestamp.After(start) || candles[len(candles)-1].Timestamp.Before(end) {
		return nil, false, nil
	}
	return cache.SliceCandles(candles, start, end), true, nil
}

func (s *RedisChunkStore) Put(ctx context.Context, instrument string, start, end time.Time, candles []models.Candle) error {
	key := redisChunkPrefix + cache.ChunkKey(instrument, start, end)

	b, err := json.Marshal(candles)
	if err != nil {
		return fmt.Errorf("encode chunk: %w", err)
	}
	if err := s.rdb.Set(ctx, key, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set chunk: %w", err)
	}
	return nil
}

// Sweep does nothing; Redis evicts expired chunks itself.
func (s *RedisChunkStore) Sweep(_ context.Context, _ time.Duration) (int, error) {
	return 0, nil
}

func (s *RedisChunkStore) Close() error {
	return s.rdb.Close()
}
