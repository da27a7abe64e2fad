// Package cache provides a named-region read-through cache over Redis.
//
// Each region has its own key namespace and TTL. Callers interact with a
// region through Get/Set/GetOrLoad; invalidation works per key or for a
// whole region at once.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Region names used across the application.
const (
	RegionProducts   = "products"
	RegionCategories = "categories"
	RegionUsers      = "users"
	RegionStores     = "stores"
)

// ErrMiss is returned by Get when the key is not cached.
var ErrMiss = errors.New("cache miss")

// TTLs holds per-region expirations. Zero values fall back to Default.
type TTLs struct {
	Default    time.Duration
	Products   time.Duration
	Categories time.Duration
	Users      time.Duration
	Stores     time.Duration
}

// Store is a Redis-backed cache with named regions.
type Store struct {
	client *redis.Client
	logger *slog.Logger
	ttls   map[string]time.Duration
	def    time.Duration
}

// New creates a cache store with the given per-region TTLs.
func New(client *redis.Client, logger *slog.Logger, ttls TTLs) *Store {
	def := ttls.Default
	if def <= 0 {
		def = 10 * time.Minute
	}
	m := map[string]time.Duration{
		RegionProducts:   ttls.Products,
		RegionCategories: ttls.Categories,
		RegionUsers:      ttls.Users,
		RegionStores:     ttls.Stores,
	}
	for region, ttl := range m {
		if ttl <= 0 {
			m[region] = def
		}
	}
	return &Store{client: client, logger: logger, ttls: m, def: def}
}

// TTL returns the expiration used for a region.
func (s *Store) TTL(region string) time.Duration {
	if ttl, ok := s.ttls[region]; ok {
		return ttl
	}
	return s.def
}

func cacheKey(region, key string) string {
	return region + ":" + key
}

// Get unmarshals a cached value into dest. Returns ErrMiss when absent.
func (s *Store) Get(ctx context.Context, region, key string, dest any) error {
	data, err := s.client.Get(ctx, cacheKey(region, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return fmt.Errorf("cache get %s:%s: %w", region, key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal cached %s:%s: %w", region, key, err)
	}

	return nil
}

// Set stores a value in a region using the region's TTL.
func (s *Store) Set(ctx context.Context, region, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s:%s: %w", region, key, err)
	}

	if err := s.client.Set(ctx, cacheKey(region, key), data, s.TTL(region)).Err(); err != nil {
		return fmt.Errorf("cache set %s:%s: %w", region, key, err)
	}

	return nil
}

// Invalidate removes a single key from a region. Missing keys are not errors.
func (s *Store) Invalidate(ctx context.Context, region, key string) error {
	if err := s.client.Del(ctx, cacheKey(region, key)).Err(); err != nil {
		return fmt.Errorf("cache del %s:%s: %w", region, key, err)
	}
	return nil
}

// InvalidateRegion removes every key in a region using SCAN to avoid
// blocking Redis on large keyspaces.
func (s *Store) InvalidateRegion(ctx context.Context, region string) error {
	iter := s.client.Scan(ctx, 0, region+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("cache del %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan %s: %w", region, err)
	}
	return nil
}

// GetOrLoad returns the cached value for key, or invokes load and caches the
// result. Cache infrastructure failures degrade to the loader: the caller
// gets data even when Redis is down, and the miss is logged.
func GetOrLoad[T any](ctx context.Context, s *Store, region, key string, load func(ctx context.Context) (T, error)) (T, error) {
	var cached T
	err := s.Get(ctx, region, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrMiss) {
		s.logger.WarnContext(ctx, "cache read failed, falling back to source",
			slog.String("region", region),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	value, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if err := s.Set(ctx, region, key, value); err != nil {
		s.logger.WarnContext(ctx, "cache write failed",
			slog.String("region", region),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	return value, nil
}
