// Package settings exposes runtime-tunable configuration stored in the
// settings table as JSON values.
package settings

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gymmind/coach-api/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DB config keys and defaults.
const (
	// SiteNameKey is the DB config key for the product name used in emails and PDFs.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback product name.
	DefaultSiteName = "GymMind"
	// RateLimitKey controls the per-account request limit per second.
	RateLimitKey = "RATE_LIMIT"
	// RateLimitRedisEnabledKey toggles Redis-backed rate limiting.
	RateLimitRedisEnabledKey = "RATE_LIMIT_REDIS_ENABLED"
	// RateLimitRedisAddrKey defines the Redis address for rate limiting.
	RateLimitRedisAddrKey = "RATE_LIMIT_REDIS_ADDR"
	// RateLimitRedisPasswordKey defines the Redis password for rate limiting.
	RateLimitRedisPasswordKey = "RATE_LIMIT_REDIS_PASSWORD"
	// RateLimitRedisDBKey defines the Redis DB index for rate limiting.
	RateLimitRedisDBKey = "RATE_LIMIT_REDIS_DB"
	// RateLimitRedisPrefixKey defines the Redis key prefix for rate limiting.
	RateLimitRedisPrefixKey = "RATE_LIMIT_REDIS_PREFIX"
	// DefaultRateLimit is the fallback rate limit (0 means unlimited).
	DefaultRateLimit = 0
	// DefaultRateLimitRedisPrefix is the fallback Redis key prefix.
	DefaultRateLimitRedisPrefix = "gymmind:rl"
)

// cacheTTL bounds how stale a cached settings row may be.
const cacheTTL = 30 * time.Second

type cachedValue struct {
	raw     json.RawMessage
	ok      bool
	fetched time.Time
}

var (
	mu    sync.RWMutex
	conn  *gorm.DB
	cache = map[string]cachedValue{}
)

// Bind attaches the settings package to a database connection.
func Bind(db *gorm.DB) {
	mu.Lock()
	defer mu.Unlock()
	conn = db
	cache = map[string]cachedValue{}
}

// DBConfigValue returns the raw JSON value for a settings key. Missing keys
// and lookup failures report ok=false.
func DBConfigValue(key string) (json.RawMessage, bool) {
	mu.RLock()
	db := conn
	cached, hit := cache[key]
	mu.RUnlock()
	if db == nil {
		return nil, false
	}
	if hit && time.Since(cached.fetched) < cacheTTL {
		return cached.raw, cached.ok
	}

	var row models.Setting
	errFind := db.Where("key = ?", key).Take(&row).Error
	next := cachedValue{fetched: time.Now()}
	if errFind == nil {
		next.raw = json.RawMessage(row.Value)
		next.ok = len(next.raw) > 0
	} else if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		log.WithError(errFind).Warn("settings: lookup failed")
		return nil, false
	}

	mu.Lock()
	cache[key] = next
	mu.Unlock()
	return next.raw, next.ok
}

// Invalidate drops a cached settings key so the next read hits the database.
func Invalidate(key string) {
	mu.Lock()
	defer mu.Unlock()
	delete(cache, key)
}
