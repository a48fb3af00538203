package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pgx-risk-server/internal/domain"
)

// CacheStats tracks hit and miss counters across both cache tiers.
type CacheStats struct {
	MemoryHits   int64     `json:"memory_hits"`
	MemoryMisses int64     `json:"memory_misses"`
	RedisHits    int64     `json:"redis_hits"`
	RedisMisses  int64     `json:"redis_misses"`
	Stores       int64     `json:"stores"`
	LastReset    time.Time `json:"last_reset"`
}

// ResultCache caches completed analysis results keyed by a digest of the
// request inputs. Tier 1 is an in-memory LRU, Tier 2 an optional Redis
// instance shared between replicas.
type ResultCache struct {
	memory *lru.Cache[string, []*domain.Report]
	redis  *redis.Client
	ttl    time.Duration
	logger *logrus.Logger

	mu    sync.Mutex
	stats CacheStats
}

// NewResultCache builds a result cache from configuration. Returns nil when
// caching is disabled, which callers treat as a no-op cache.
func NewResultCache(cfg domain.CacheConfig, logger *logrus.Logger) (*ResultCache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	size := cfg.LRUSize
	if size <= 0 {
		size = 256
	}
	memory, err := lru.New[string, []*domain.Report](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	cache := &ResultCache{
		memory: memory,
		ttl:    ttl,
		logger: logger,
		stats:  CacheStats{LastReset: time.Now()},
	}

	if cfg.RedisAddr != "" {
		cache.redis = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
	}

	return cache, nil
}

// Key derives a deterministic cache key from the raw VCF content, the
// requested drugs and the patient context.
func (rc *ResultCache) Key(vcfData []byte, drugs []string, pctx *domain.PatientContext) string {
	h := sha256.New()
	h.Write(vcfData)

	normalized := make([]string, 0, len(drugs))
	for _, d := range drugs {
		normalized = append(normalized, strings.ToUpper(strings.TrimSpace(d)))
	}
	sort.Strings(normalized)
	h.Write([]byte(strings.Join(normalized, ",")))

	if pctx != nil {
		if encoded, err := json.Marshal(pctx); err == nil {
			h.Write(encoded)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get looks up a cached result, checking memory before Redis. A Redis hit
// repopulates the memory tier.
func (rc *ResultCache) Get(ctx context.Context, key string) ([]*domain.Report, bool) {
	if rc == nil {
		return nil, false
	}

	if reports, ok := rc.memory.Get(key); ok {
		rc.incrementStat(func(s *CacheStats) { s.MemoryHits++ })
		rc.logger.WithFields(logrus.Fields{
			"key":        key,
			"cache_tier": "memory",
		}).Debug("Analysis cache hit")
		return reports, true
	}
	rc.incrementStat(func(s *CacheStats) { s.MemoryMisses++ })

	if rc.redis == nil {
		return nil, false
	}

	payload, err := rc.redis.Get(ctx, rc.redisKey(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			rc.logger.WithError(err).Warn("Redis cache lookup failed")
		}
		rc.incrementStat(func(s *CacheStats) { s.RedisMisses++ })
		return nil, false
	}

	var reports []*domain.Report
	if err := json.Unmarshal(payload, &reports); err != nil {
		rc.logger.WithError(err).Warn("Failed to decode cached analysis result")
		rc.incrementStat(func(s *CacheStats) { s.RedisMisses++ })
		return nil, false
	}

	rc.incrementStat(func(s *CacheStats) { s.RedisHits++ })
	rc.logger.WithFields(logrus.Fields{
		"key":        key,
		"cache_tier": "redis",
	}).Debug("Analysis cache hit")

	rc.memory.Add(key, reports)
	return reports, true
}

// Set stores a result in both tiers. Redis failures are logged and ignored.
func (rc *ResultCache) Set(ctx context.Context, key string, reports []*domain.Report) {
	if rc == nil {
		return
	}

	rc.memory.Add(key, reports)
	rc.incrementStat(func(s *CacheStats) { s.Stores++ })

	if rc.redis == nil {
		return
	}

	payload, err := json.Marshal(reports)
	if err != nil {
		rc.logger.WithError(err).Warn("Failed to encode analysis result for cache")
		return
	}
	if err := rc.redis.Set(ctx, rc.redisKey(key), payload, rc.ttl).Err(); err != nil {
		rc.logger.WithError(err).Warn("Failed to store analysis result in Redis")
	}
}

// Stats returns a snapshot of the cache counters.
func (rc *ResultCache) Stats() CacheStats {
	if rc == nil {
		return CacheStats{}
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.stats
}

func (rc *ResultCache) redisKey(key string) string {
	return "pgx:analysis:" + key
}

func (rc *ResultCache) incrementStat(update func(*CacheStats)) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	update(&rc.stats)
}
