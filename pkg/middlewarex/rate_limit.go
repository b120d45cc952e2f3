package middlewarex

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"shirtdrop/pkg/httpx/reply"
	"shirtdrop/pkg/logx"
)

type rateCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisCounter is a fixed window counter: INCR + EXPIRE on the first hit.
type RedisCounter struct {
	client redis.Cmdable
}

func NewRedisCounter(client redis.Cmdable) RedisCounter {
	return RedisCounter{client: client}
}

func (c RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.PTTL(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("pipe.Exec: %w", err)
	}

	return incr.Val(), ttl.Val(), nil
}

// RateLimit allows limit requests per window for each client IP and scope.
// Counter failures let the request through.
func RateLimit(counter rateCounter, scope string, limit int64, window time.Duration) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if counter == nil || limit <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := "ratelimit:" + scope + ":" + ClientIP(r)

			count, ttl, err := counter.Incr(ctx, key, window)
			if err != nil {
				logger(ctx).Warn("rate limit counter failed", logx.Error(err))
				next.ServeHTTP(w, r)

				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(max(limit-count, 0), 10))

			if count > limit {
				reply.TooManyRequests(ctx, w, strconv.Itoa(int(ttl.Round(time.Second).Seconds())))

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
