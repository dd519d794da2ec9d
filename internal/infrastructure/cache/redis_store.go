package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"image-pipeline/internal/domain"
)

const defaultRedisPrefix = "image-pipeline:manifest:"

// RedisManifestStore keeps manifests as JSON strings in Redis. A sorted set
// indexed by save time drives Sweep. Implements domain.ManifestStore.
type RedisManifestStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

// NewRedisManifestStore creates a store on an existing client.
func NewRedisManifestStore(client *redis.Client, logger *slog.Logger) *RedisManifestStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisManifestStore{
		client: client,
		prefix: defaultRedisPrefix,
		logger: logger,
		now:    time.Now,
	}
}

// NewRedisManifestStoreWithURL creates a store from a redis:// URL.
func NewRedisManifestStoreWithURL(url string, logger *slog.Logger) (*RedisManifestStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisManifestStore(redis.NewClient(opts), logger), nil
}

// Ping checks connectivity.
func (s *RedisManifestStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisManifestStore) Close() error {
	return s.client.Close()
}

func (s *RedisManifestStore) entryKey(key string) string {
	return s.prefix + key
}

func (s *RedisManifestStore) indexKey() string {
	return s.prefix + "index"
}

// Get reads the manifest for key.
func (s *RedisManifestStore) Get(ctx context.Context, key string) (*domain.ProcessingResult, error) {
	data, err := s.client.Get(ctx, s.entryKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var result domain.ProcessingResult
	if err := json.Unmarshal(data, &result); err != nil {
		s.logger.WarnContext(ctx, "ignoring unparseable manifest",
			"cache_key", key,
			"error", err)
		return nil, domain.ErrCacheMiss
	}
	return &result, nil
}

// Save stores the manifest and records its save time in the index.
func (s *RedisManifestStore) Save(ctx context.Context, key string, result *domain.ProcessingResult) error {
	if result == nil {
		return errors.New("nil manifest")
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.entryKey(key), data, 0)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{
			Score:  float64(s.now().UnixMilli()),
			Member: key,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save: %w", err)
	}
	return nil
}

// Sweep deletes entries saved more than maxAge ago.
func (s *RedisManifestStore) Sweep(ctx context.Context, maxAge time.Duration) (domain.SweepReport, error) {
	start := s.now()
	cutoff := start.Add(-maxAge).UnixMilli()
	var report domain.SweepReport

	// Exclusive upper bound: entries saved exactly at the cutoff survive.
	keys, err := s.client.ZRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil {
		return report, fmt.Errorf("redis sweep index: %w", err)
	}
	report.Scanned = len(keys)

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			report.Elapsed = s.now().Sub(start)
			return report, err
		}

		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, s.entryKey(key))
			pipe.ZRem(ctx, s.indexKey(), key)
			return nil
		})
		if err != nil {
			report.Failed++
			s.logger.WarnContext(ctx, "failed to delete cache entry", "cache_key", key, "error", err)
			continue
		}
		report.Deleted++
	}

	report.Elapsed = s.now().Sub(start)
	return report, nil
}
