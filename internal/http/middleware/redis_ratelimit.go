package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient dials addr and verifies the connection with a PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis failed: %w", err)
	}
	return client, nil
}

// RedisRateLimiter is a fixed-window limiter whose counters live in Redis, so
// every replica behind a load balancer draws from the same budget.
//
// Each key gets at most Limit requests per Window. If Redis is unreachable the
// request is let through and a warning is logged.
type RedisRateLimiter struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
	keyFn  keyFunc
	costFn CostFunc
	prefix string
	now    func() time.Time
}

// NewRedisRateLimiter builds a limiter allowing limit requests per window.
// limit <= 0 is coerced to 1 and window <= 0 to one second.
func NewRedisRateLimiter(client redis.Cmdable, limit int, window time.Duration, keyFn keyFunc) *RedisRateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &RedisRateLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
		keyFn:  keyFn,
		costFn: unitCost,
		prefix: "documind:rl:",
		now:    time.Now,
	}
}

// WithCost installs a request weighting, capped at the window limit.
func (rl *RedisRateLimiter) WithCost(fn CostFunc) *RedisRateLimiter {
	if fn != nil {
		rl.costFn = fn
	}
	return rl
}

// allow adds n to the counter of the current window for key. When denied it
// also returns the time left in the window.
func (rl *RedisRateLimiter) allow(ctx context.Context, key string, n int64) (bool, time.Duration, error) {
	now := rl.now()
	window := int64(rl.window)
	bucket := now.UnixNano() / window
	rk := rl.prefix + key + ":" + strconv.FormatInt(bucket, 10)

	var incr *redis.IntCmd
	_, err := rl.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.IncrBy(ctx, rk, n)
		p.Expire(ctx, rk, rl.window)
		return nil
	})
	if err != nil {
		return true, 0, err
	}
	if incr.Val() <= rl.limit {
		return true, 0, nil
	}
	return false, time.Duration((bucket+1)*window - now.UnixNano()), nil
}

// Handler returns the Gin middleware. Idempotent replays bypass it the same
// way they bypass RateLimiter.
func (rl *RedisRateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		n := int64(rl.costFn(c))
		if n < 1 {
			n = 1
		}
		if n > rl.limit {
			n = rl.limit
		}
		allowed, wait, err := rl.allow(c.Request.Context(), rl.keyFn(c), n)
		if err != nil {
			LoggerFrom(c).Warn().Err(err).Msg("redis rate limiter unavailable; allowing request")
		}
		if allowed {
			c.Next()
			return
		}
		abortRateLimited(c, wait, "redis")
	}
}
