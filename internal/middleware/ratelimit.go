package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/OkeahDavid/Metrics-hub/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateCounter is the fixed-window counter behind the rate limiter. A
// single-process map and a shared Redis counter are interchangeable
// implementations of this contract.
type RateCounter interface {
	// Incr increments the counter for key within the current window and
	// returns the new count plus the time remaining until the window resets.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, retryAfter time.Duration, err error)
}

// RateLimit guards externally reachable write paths with a fixed window of
// max requests per client address. Counter failures fail open: dropping a
// tracking event over a limiter hiccup is worse than letting one through.
// A nil reject sends the standard 429 envelope; the tracking pixel passes
// its own so a throttled <img> still receives a valid image.
func RateLimit(counter RateCounter, max int64, window time.Duration, log *zap.Logger, reject func(c *gin.Context, retryAfterSeconds int)) gin.HandlerFunc {
	if reject == nil {
		reject = func(c *gin.Context, retryAfterSeconds int) {
			response.RateLimited(c, retryAfterSeconds)
		}
	}
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		count, retryAfter, err := counter.Incr(c.Request.Context(), ip, window)
		if err != nil {
			log.Warn("rate counter unavailable", zap.Error(err))
			c.Next()
			return
		}

		if count > max {
			retrySeconds := int(retryAfter.Round(time.Second) / time.Second)
			reject(c, retrySeconds)
			return
		}

		c.Next()
	}
}

type memoryEntry struct {
	count   int64
	resetAt time.Time
}

// MemoryCounter is an in-process RateCounter. Safe for concurrent use;
// stale entries are evicted opportunistically as other keys increment.
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time

	sweepEvery int
	sinceSweep int
}

// NewMemoryCounter creates an empty in-process counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		entries:    make(map[string]*memoryEntry),
		now:        time.Now,
		sweepEvery: 1024,
	}
}

func (m *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry, ok := m.entries[key]
	if !ok || !now.Before(entry.resetAt) {
		m.entries[key] = &memoryEntry{count: 1, resetAt: now.Add(window)}
		m.maybeSweep(now)
		return 1, window, nil
	}

	entry.count++
	return entry.count, entry.resetAt.Sub(now), nil
}

// maybeSweep drops expired entries every sweepEvery increments so the map
// does not grow unbounded with one-off client addresses. Caller holds mu.
func (m *MemoryCounter) maybeSweep(now time.Time) {
	m.sinceSweep++
	if m.sinceSweep < m.sweepEvery {
		return
	}
	m.sinceSweep = 0
	for key, entry := range m.entries {
		if !now.Before(entry.resetAt) {
			delete(m.entries, key)
		}
	}
}

// RedisCounter is a RateCounter shared across service instances.
type RedisCounter struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCounter creates a counter on the given Redis client.
func NewRedisCounter(rdb *redis.Client) *RedisCounter {
	return &RedisCounter{rdb: rdb, prefix: "mh:rate_limit:"}
}

func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	redisKey := fmt.Sprintf("%s%s:%d", r.prefix, key, time.Now().UnixNano()/int64(window))

	count, err := r.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		r.rdb.PExpire(ctx, redisKey, window)
	}

	retryAfter, err := r.rdb.PTTL(ctx, redisKey).Result()
	if err != nil || retryAfter < 0 {
		retryAfter = window
	}
	return count, retryAfter, nil
}
