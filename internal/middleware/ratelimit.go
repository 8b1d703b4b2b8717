package middleware

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tsamuels456/unboundedfigures/internal/observability"
)

// FailPolicy decides what a limiter does when Redis cannot be reached.
type FailPolicy int

const (
	FailOpen   FailPolicy = iota // let the request through
	FailClosed                   // answer 503
	FailLocal                    // count in an in-process token bucket instead
)

const localBucketIdle = 5 * time.Minute

var errNoRedis = errors.New("rate limit: redis client is nil")

// rateLimitBypassed is true for APP_ENV values used on laptops and in load tests.
func rateLimitBypassed() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development", "stress":
		return true
	}
	return false
}

// CheckRateLimit counts one hit for id against resource in a fixed window stored at
// rl:<resource>:<id>, and reports whether the hit is within limit.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if rateLimitBypassed() {
		return true, nil
	}
	if rdb == nil {
		return false, errNoRedis
	}

	key := "rl:" + resource + ":" + id
	hits, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	// The first hit opens the window.
	if hits == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return hits <= int64(limit), nil
}

type bucket struct {
	*rate.Limiter
	lastSeen time.Time
}

// localBuckets approximates the Redis window with one token bucket per key.
type localBuckets struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	every   rate.Limit
	burst   int
}

func newLocalBuckets(limit int, window time.Duration) *localBuckets {
	limit = max(limit, 1)
	return &localBuckets{
		buckets: make(map[string]*bucket),
		every:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
	}
}

func (lb *localBuckets) allow(key string) bool {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	now := time.Now()
	for k, b := range lb.buckets {
		if now.Sub(b.lastSeen) > localBucketIdle {
			delete(lb.buckets, k)
		}
	}

	b := lb.buckets[key]
	if b == nil {
		b = &bucket{Limiter: rate.NewLimiter(lb.every, lb.burst)}
		lb.buckets[key] = b
	}
	b.lastSeen = now
	return b.Allow()
}

// RateLimit limits each figure (or each IP before sign-in) to limit requests per
// window. name groups routes into one counter and defaults to the path.
// Without Redis, or while it is down, each instance enforces the limit locally.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailLocal, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit outage policy.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	fallback := newLocalBuckets(limit, window)

	return func(c *fiber.Ctx) error {
		if rateLimitBypassed() {
			return c.Next()
		}

		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}
		subject := "ip:" + c.IP()
		if uid := c.Locals("userID"); uid != nil {
			subject = fmt.Sprintf("user:%v", uid)
		}

		allowed, err := CheckRateLimit(c.UserContext(), rdb, resource, subject, limit, window)
		if err != nil {
			observability.RedisErrors.WithLabelValues("ratelimit").Inc()
			switch policy {
			case FailOpen:
				return c.Next()
			case FailLocal:
				allowed = fallback.allow(resource + "|" + subject)
			default:
				observability.Logger(c.UserContext()).Warn("rate limiter unavailable, rejecting",
					zap.String("resource", resource), zap.Error(err))
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "rate limit unavailable"})
			}
		}
		if !allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		}
		return c.Next()
	}
}
