package annotation

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/variant-curation-server/internal/domain"
	"github.com/variant-curation-server/internal/metrics"
)

const (
	tierMemory = "memory"
	tierRedis  = "redis"

	keyPrefix = "vcs:annotation:"
)

// CachedAnnotation is the Redis representation of an annotation result
type CachedAnnotation struct {
	Data      domain.AnnotationResult `json:"data"`
	CachedAt  time.Time               `json:"cached_at"`
	ExpiresAt time.Time               `json:"expires_at"`
}

type memoryEntry struct {
	result    domain.AnnotationResult
	expiresAt time.Time
}

// CachedAnnotator fronts another Annotator with an in-process LRU tier and an optional shared
// Redis tier. Concurrent lookups for the same variant share one upstream call. Failures are
// never cached.
type CachedAnnotator struct {
	next    domain.Annotator
	memory  *lru.Cache[string, memoryEntry]
	redis   *redis.Client
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

// NewCachedAnnotator creates a caching decorator. redisClient may be nil.
func NewCachedAnnotator(
	next domain.Annotator,
	config domain.CacheConfig,
	redisClient *redis.Client,
	m *metrics.Metrics,
	logger *logrus.Logger,
) (*CachedAnnotator, error) {
	if config.LocalSize <= 0 {
		config.LocalSize = 1000
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 24 * time.Hour
	}

	memory, err := lru.New[string, memoryEntry](config.LocalSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	return &CachedAnnotator{
		next:    next,
		memory:  memory,
		redis:   redisClient,
		ttl:     config.DefaultTTL,
		metrics: m,
		logger:  logger,
	}, nil
}

// NewRedisClient connects to Redis using the cache configuration
func NewRedisClient(ctx context.Context, config domain.CacheConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// Annotate implements domain.Annotator
func (c *CachedAnnotator) Annotate(ctx context.Context, variant domain.CanonicalVariant) (domain.AnnotationResult, error) {
	key := cacheKey(variant)

	if result, ok := c.getFromMemory(key); ok {
		c.metrics.CacheHit(tierMemory)
		return result, nil
	}
	c.metrics.CacheMiss(tierMemory)

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		if result, ok := c.getFromRedis(ctx, key); ok {
			c.metrics.CacheHit(tierRedis)
			c.setInMemory(key, result)
			return result, nil
		}
		if c.redis != nil {
			c.metrics.CacheMiss(tierRedis)
		}

		result, err := c.next.Annotate(ctx, variant)
		if err != nil {
			return domain.AnnotationResult{}, err
		}

		c.setInMemory(key, result)
		c.setInRedis(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return domain.AnnotationResult{}, err
	}

	if shared {
		c.logger.WithField("variant", variant.Key()).Debug("Shared in-flight annotation lookup")
	}

	return copyResult(v.(domain.AnnotationResult)), nil
}

// Invalidate drops the cached result for a variant from both tiers.
func (c *CachedAnnotator) Invalidate(ctx context.Context, variant domain.CanonicalVariant) error {
	key := cacheKey(variant)
	c.memory.Remove(key)
	if c.redis == nil {
		return nil
	}
	if err := c.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate annotation cache: %w", err)
	}
	return nil
}

// Len returns the number of entries in the memory tier.
func (c *CachedAnnotator) Len() int {
	return c.memory.Len()
}

func (c *CachedAnnotator) getFromMemory(key string) (domain.AnnotationResult, bool) {
	entry, ok := c.memory.Get(key)
	if !ok {
		return domain.AnnotationResult{}, false
	}
	if time.Now().After(entry.expiresAt) {
		c.memory.Remove(key)
		return domain.AnnotationResult{}, false
	}
	return copyResult(entry.result), true
}

func (c *CachedAnnotator) setInMemory(key string, result domain.AnnotationResult) {
	c.memory.Add(key, memoryEntry{result: copyResult(result), expiresAt: time.Now().Add(c.ttl)})
}

func (c *CachedAnnotator) getFromRedis(ctx context.Context, key string) (domain.AnnotationResult, bool) {
	if c.redis == nil {
		return domain.AnnotationResult{}, false
	}

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return domain.AnnotationResult{}, false
	}
	if err != nil {
		c.logger.WithError(err).Warn("Failed to read annotation cache")
		return domain.AnnotationResult{}, false
	}

	var cached CachedAnnotation
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, key)
		return domain.AnnotationResult{}, false
	}
	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return domain.AnnotationResult{}, false
	}

	return cached.Data, true
}

func (c *CachedAnnotator) setInRedis(ctx context.Context, key string, result domain.AnnotationResult) {
	if c.redis == nil {
		return
	}

	now := time.Now()
	data, err := json.Marshal(CachedAnnotation{
		Data:      result,
		CachedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	})
	if err != nil {
		c.logger.WithError(err).Warn("Failed to marshal annotation cache entry")
		return
	}

	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		// Log cache error but don't fail the request
		c.logger.WithError(err).Warn("Failed to write annotation cache")
	}
}

func cacheKey(variant domain.CanonicalVariant) string {
	sum := sha256.Sum256([]byte(variant.Key()))
	return fmt.Sprintf("%s%x", keyPrefix, sum[:16])
}

func copyResult(result domain.AnnotationResult) domain.AnnotationResult {
	transcripts := make([]string, len(result.Transcripts))
	copy(transcripts, result.Transcripts)
	return domain.AnnotationResult{Transcripts: transcripts}
}
