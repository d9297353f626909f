package external

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vitality-score-server/internal/domain"
)

// CacheClient wraps a Redis client for snapshotting computed day scores and
// extraction results. Cached values are snapshots only; recomputation from
// raw records is always authoritative, so a miss or corrupted entry is
// never an error.
type CacheClient struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// NewCacheClient creates a new cache client
func NewCacheClient(config domain.CacheConfig) (*CacheClient, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Apply cache-specific configurations
	opts.PoolSize = config.PoolSize
	opts.PoolTimeout = config.PoolTimeout
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &CacheClient{
		redis:      client,
		defaultTTL: config.DefaultTTL,
	}, nil
}

// cachedDayScore wraps a vitality score snapshot with cache metadata.
type cachedDayScore struct {
	Score     *domain.VitalityScore `json:"score"`
	CachedAt  time.Time             `json:"cached_at"`
	ExpiresAt time.Time             `json:"expires_at"`
}

// cachedExtraction wraps extracted readings with cache metadata.
type cachedExtraction struct {
	Readings  []domain.BiomarkerReading `json:"readings"`
	CachedAt  time.Time                 `json:"cached_at"`
	ExpiresAt time.Time                 `json:"expires_at"`
}

// GetDayScore retrieves a cached vitality score snapshot for (user, date).
func (c *CacheClient) GetDayScore(ctx context.Context, userID, date string) (*domain.VitalityScore, bool, error) {
	key := c.dayScoreKey(userID, date)

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil // Cache miss
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get day score cache: %w", err)
	}

	var cached cachedDayScore
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	// Check if expired
	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	return cached.Score, true, nil
}

// SetDayScore caches a vitality score snapshot.
func (c *CacheClient) SetDayScore(ctx context.Context, userID string, score *domain.VitalityScore) error {
	key := c.dayScoreKey(userID, score.Date)

	cached := cachedDayScore{
		Score:     score,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(c.defaultTTL),
	}

	jsonData, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal day score cache data: %w", err)
	}

	return c.redis.Set(ctx, key, jsonData, c.defaultTTL).Err()
}

// InvalidateDayScore removes the cached score for (user, date). Called after
// a metric or log upsert so stale snapshots never outlive the raw records
// they were derived from.
func (c *CacheClient) InvalidateDayScore(ctx context.Context, userID, date string) error {
	return c.redis.Del(ctx, c.dayScoreKey(userID, date)).Err()
}

// InvalidateUserScores removes every cached score for a user. Log upserts
// shift streaks for later days too, so a single-date invalidation is not
// enough there.
func (c *CacheClient) InvalidateUserScores(ctx context.Context, userID string) error {
	pattern := fmt.Sprintf("vitality:score:%s:*", userID)

	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete score cache key: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan score cache keys: %w", err)
	}
	return nil
}

// GetExtraction retrieves cached extraction results for a document.
func (c *CacheClient) GetExtraction(ctx context.Context, documentText string) ([]domain.BiomarkerReading, bool, error) {
	key := c.extractionKey(documentText)

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil // Cache miss
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get extraction cache: %w", err)
	}

	var cached cachedExtraction
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	return cached.Readings, true, nil
}

// SetExtraction caches extraction results keyed by document content, so an
// identical re-upload skips the provider call.
func (c *CacheClient) SetExtraction(ctx context.Context, documentText string, readings []domain.BiomarkerReading, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	key := c.extractionKey(documentText)

	cached := cachedExtraction{
		Readings:  readings,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}

	jsonData, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal extraction cache data: %w", err)
	}

	return c.redis.Set(ctx, key, jsonData, ttl).Err()
}

// dayScoreKey creates a cache key for a (user, date) score snapshot.
func (c *CacheClient) dayScoreKey(userID, date string) string {
	return fmt.Sprintf("vitality:score:%s:%s", userID, date)
}

// extractionKey creates a content-addressed cache key for a document.
func (c *CacheClient) extractionKey(documentText string) string {
	hash := sha256.Sum256([]byte(documentText))
	return fmt.Sprintf("vitality:extraction:%x", hash[:8])
}

// Ping checks if Redis connection is alive
func (c *CacheClient) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *CacheClient) Close() error {
	return c.redis.Close()
}
