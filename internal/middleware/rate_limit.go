package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pesaflow/pesaflow-backend/internal/api/httpx"
)

// RateLimit returns a fixed-window limiter backed by Redis when a client
// is supplied, so the limit holds across replicas. With a nil client it
// degrades to a single in-process token bucket.
func RateLimit(rdb *redis.Client, rps int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if rdb != nil {
		return redisLimit(rdb, rps)
	}
	return localLimit(rps)
}

func redisLimit(rdb *redis.Client, rps int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ratelimit:" + strconv.FormatInt(time.Now().Unix(), 10)
			n, err := rdb.Incr(r.Context(), key).Result()
			if err == nil && n == 1 {
				rdb.Expire(r.Context(), key, 2*time.Second)
			}
			// Redis being down must not take the API with it.
			if err == nil && n > int64(rps) {
				httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type tokenBucket struct {
	mu     sync.Mutex
	tokens int
	last   time.Time
	rate   int
	burst  int
}

func localLimit(rps int) func(http.Handler) http.Handler {
	tb := &tokenBucket{
		tokens: rps,
		last:   time.Now(),
		rate:   rps,
		burst:  rps,
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tb.mu.Lock()
			now := time.Now()
			elapsed := now.Sub(tb.last).Seconds()
			if elapsed > 0 {
				refill := int(elapsed * float64(tb.rate))
				if refill > 0 {
					tb.tokens += refill
					if tb.tokens > tb.burst {
						tb.tokens = tb.burst
					}
					tb.last = now
				}
			}
			allowed := tb.tokens > 0
			if allowed {
				tb.tokens--
			}
			tb.mu.Unlock()

			if !allowed {
				httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
