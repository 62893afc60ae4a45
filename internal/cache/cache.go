// Package cache keeps structured extraction results keyed by a hash of the
// resume text, so re-uploads of the same document skip the AI call.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"atscore/internal/ai"
	"atscore/internal/config"
	appErrors "atscore/internal/errors"
	"atscore/internal/types"
)

// ErrMiss is returned by a Backend when the key is absent.
var ErrMiss = errors.New("cache miss")

// Backend is a byte-oriented key/value store with expiry.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// RedisBackend stores entries in Redis.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects to Redis and instruments the client with OpenTelemetry.
func NewRedisBackend(ctx context.Context, cfg config.CacheConfig) (*RedisBackend, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis tracing: %w", err)
	}
	if err := redisotel.InstrumentMetrics(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis metrics: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}

	return &RedisBackend{client: client}, nil
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return value, err
}

func (r *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}

// CachedExtractor wraps a StructuredExtractor with a read-through cache.
// Cache failures are logged and never fail extraction.
type CachedExtractor struct {
	next    ai.StructuredExtractor
	backend Backend
	ttl     time.Duration
	prefix  string
	logger  *appErrors.Logger
}

var _ ai.StructuredExtractor = (*CachedExtractor)(nil)

// NewCachedExtractor wraps next with the given backend.
func NewCachedExtractor(next ai.StructuredExtractor, backend Backend, cfg config.CacheConfig, logger *appErrors.Logger) *CachedExtractor {
	if logger == nil {
		logger = appErrors.NewNopLogger()
	}
	return &CachedExtractor{
		next:    next,
		backend: backend,
		ttl:     cfg.TTL,
		prefix:  cfg.KeyPrefix,
		logger:  logger,
	}
}

// Key returns the cache key for a resume text.
func (c *CachedExtractor) Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(sum[:])
}

func (c *CachedExtractor) ExtractFields(ctx context.Context, text string) (*types.StructuredFields, error) {
	key := c.Key(text)

	cached, err := c.backend.Get(ctx, key)
	switch {
	case err == nil:
		fields, decodeErr := types.ParseStructuredFields(cached)
		if decodeErr == nil {
			c.logger.Debug("Extraction cache hit", "key", key)
			return fields, nil
		}
		c.logger.Warn("Discarding undecodable cache entry", "key", key, "error", decodeErr.Error())
	case errors.Is(err, ErrMiss):
	default:
		c.logger.Warn("Extraction cache read failed", "key", key, "error", err.Error())
	}

	fields, err := c.next.ExtractFields(ctx, text)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(fields)
	if err != nil {
		c.logger.Warn("Failed to encode extraction for cache", "error", err.Error())
		return fields, nil
	}
	if err := c.backend.Set(ctx, key, payload, c.ttl); err != nil {
		c.logger.Warn("Extraction cache write failed", "key", key, "error", err.Error())
	}
	return fields, nil
}
