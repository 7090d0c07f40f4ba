// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the in-process token-bucket rate limiter. Buckets are
// keyed per caller (user id when known, client IP otherwise) and requests are
// weighted: a call that fans out to the text generator can be charged more
// tokens than a plain document read.
//
// Notes:
//   - This limiter is process-local. Horizontally scaled deployments use
//     RedisRateLimiter (redis_ratelimit.go), which shares counters across replicas.
//   - Idempotent replays flagged by IdempotencyValidator are never charged.
//   - Rate limiting is cost protection, not authorization.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-documind-backend/internal/utils"
)

// keyFunc selects the identity used to key a rate-limit bucket, e.g.
// "user:42" or "ip:203.0.113.7".
type keyFunc func(*gin.Context) string

// CostFunc returns how many tokens a request consumes. Values below 1 count as 1.
type CostFunc func(*gin.Context) int

// KeyByUserOrIP prefers the user id stored in the Gin context under
// "userID", then a positive X-User-ID header, and falls back to the client
// IP. Keys are prefixed so user and IP namespaces never collide.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if v, ok := c.Get("userID"); ok {
			switch id := v.(type) {
			case int64:
				if id > 0 {
					return "user:" + strconv.FormatInt(id, 10)
				}
			case string:
				if id != "" {
					return "user:" + id
				}
			}
		}
		if id, ok := utils.PositiveID(c.GetHeader("X-User-ID")); ok {
			return "user:" + strconv.FormatInt(id, 10)
		}
		return "ip:" + c.ClientIP()
	}
}

// CostByRoute charges cost tokens for requests whose method is method and
// whose route template ends with suffix; every other request costs 1.
func CostByRoute(method, suffix string, cost int) CostFunc {
	return func(c *gin.Context) int {
		if c.Request.Method == method && strings.HasSuffix(c.FullPath(), suffix) {
			return cost
		}
		return 1
	}
}

func unitCost(*gin.Context) int { return 1 }

// bucket is one caller's limiter plus when it was last used.
type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-key token-bucket limiter. Idle buckets are swept
// every sweepEvery lookups. It is safe for concurrent use.
type RateLimiter struct {
	rps    rate.Limit
	burst  int
	keyFn  keyFunc
	costFn CostFunc
	now    func() time.Time

	mu         sync.Mutex
	buckets    map[string]*bucket
	idleTTL    time.Duration
	lookups    uint64
	sweepEvery uint64
}

// NewRateLimiter allows rps tokens per second with the given burst, keyed by
// keyFn. burst <= 0 is coerced to 1. Every request costs one token until
// WithCost is called.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:        rate.Limit(rps),
		burst:      burst,
		keyFn:      keyFn,
		costFn:     unitCost,
		now:        time.Now,
		buckets:    make(map[string]*bucket),
		idleTTL:    10 * time.Minute,
		sweepEvery: 5000,
	}
}

// WithCost installs a request weighting. A cost larger than the burst is
// capped at the burst so the request can still succeed on a full bucket.
func (rl *RateLimiter) WithCost(fn CostFunc) *RateLimiter {
	if fn != nil {
		rl.costFn = fn
	}
	return rl
}

// limiterFor returns the limiter of key, creating it if absent. The sweep
// runs before the lookup so a stale entry for key itself is replaced.
func (rl *RateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= rl.sweepEvery {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.idleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lookups = 0
	}

	if b, ok := rl.buckets[key]; ok {
		b.lastSeen = now
		return b.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.buckets[key] = &bucket{limiter: lim, lastSeen: now}
	return lim
}

// cost clamps the weight of c to [1, burst].
func (rl *RateLimiter) cost(c *gin.Context) int {
	n := rl.costFn(c)
	if n < 1 {
		n = 1
	}
	if n > rl.burst {
		n = rl.burst
	}
	return n
}

// take charges n tokens to key. When the bucket is short it returns false
// and how long until n tokens would be available.
func (rl *RateLimiter) take(key string, n int) (bool, time.Duration) {
	now := rl.now()
	lim := rl.limiterFor(key, now)
	r := lim.ReserveN(now, n)
	if !r.OK() {
		return false, time.Second
	}
	delay := r.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}
	r.CancelAt(now)
	return false, delay
}

// IsRateBypass reports whether IdempotencyValidator marked this request as a
// replay that must not be charged.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler enforces the limit. Denied requests get 429 with Retry-After set
// to the whole seconds until the bucket could serve them:
//
//	{"request_id": "<uuid>", "code": "rate_limited", "message": "rate limit exceeded"}
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}
		ok, wait := rl.take(rl.keyFn(c), rl.cost(c))
		if ok {
			c.Next()
			return
		}
		abortRateLimited(c, wait, "memory")
	}
}

// abortRateLimited writes the shared 429 reply of both limiters and counts
// the denial under the limiter's name.
func abortRateLimited(c *gin.Context, wait time.Duration, limiter string) {
	rateLimited.WithLabelValues(limiter).Inc()
	secs := int(math.Ceil(wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", strconv.Itoa(secs))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"request_id": c.Writer.Header().Get("X-Request-ID"),
		"code":       "rate_limited",
		"message":    "rate limit exceeded",
	})
}
