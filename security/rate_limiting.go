package security

import (
	"context"
	"fmt"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// VerifyLimit caps verification requests per caller in a fixed one minute
// window. Limited by user id when authenticated, otherwise by IP, so an
// attacker cannot burn through provider quota probing transaction ids.
func (r *RateLimiter) VerifyLimit(limit int) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if limit <= 0 || r.redis == nil {
			return e.Next()
		}

		id := e.RealIP()
		if e.Auth != nil {
			id = "user:" + e.Auth.Id
		}
		key := fmt.Sprintf("ratelimit:verify:%s", id)

		count, err := r.redis.Incr(e.Request.Context(), key).Result()
		if err != nil {
			// redis being down should not take verification down with it
			return e.Next()
		}
		if count == 1 {
			r.redis.Expire(e.Request.Context(), key, time.Minute)
		}
		if count > int64(limit) {
			return apis.NewTooManyRequestsError("Rate limit exceeded. Please try again later.", nil)
		}

		return e.Next()
	}
}

// InFlight marks a transaction id as being verified and reports whether the
// caller won the claim. The lock is advisory and expires on its own, the
// database unique constraint is what actually guarantees a single commit.
func (r *RateLimiter) InFlight(ctx context.Context, transactionID string) (bool, func()) {
	if r.redis == nil {
		return true, func() {}
	}

	key := fmt.Sprintf("verify:inflight:%s", transactionID)

	ok, err := r.redis.SetNX(ctx, key, "1", 2*time.Minute).Result()
	if err != nil {
		return true, func() {}
	}
	release := func() { r.redis.Del(ctx, key) }
	return ok, release
}
