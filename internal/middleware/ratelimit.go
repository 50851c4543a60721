package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/opsmind/auth/internal/domain"
	"github.com/opsmind/auth/pkg/logging"
)

const MsgRateLimited = "Too many requests, please try again later."

// Limit allows Max requests per client IP in each Window.
type Limit struct {
	Name   string
	Max    int
	Window time.Duration
}

var (
	GlobalLimit = Limit{Name: "global", Max: 200, Window: 15 * time.Minute}
	SignupLimit = Limit{Name: "signup", Max: 5, Window: 15 * time.Minute}
	LoginLimit  = Limit{Name: "login", Max: 10, Window: 15 * time.Minute}
	VerifyLimit = Limit{Name: "verify_otp", Max: 10, Window: 15 * time.Minute}
	ResendLimit = Limit{Name: "resend_otp", Max: 3, Window: 15 * time.Minute}
)

// StoreFor builds the counter store backing one Limit.
type StoreFor func(Limit) echomw.RateLimiterStore

// MemoryStore keeps a token bucket per IP in process: Max requests at once,
// refilled over Window.
func MemoryStore(l Limit) echomw.RateLimiterStore {
	return echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(l.Max) / l.Window.Seconds()),
		Burst:     l.Max,
		ExpiresIn: l.Window,
	})
}

// RedisLimiter counts requests in fixed windows shared by every instance.
// When Redis is unreachable requests are let through.
type RedisLimiter struct {
	Client  redis.UniversalClient
	Prefix  string
	Timeout time.Duration
	Log     *slog.Logger
}

func (r *RedisLimiter) Store(l Limit) echomw.RateLimiterStore {
	return &redisWindow{r: r, limit: l}
}

type redisWindow struct {
	r     *RedisLimiter
	limit Limit
}

func (w *redisWindow) Allow(identifier string) (bool, error) {
	timeout := w.r.Timeout
	if timeout <= 0 {
		timeout = 200 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	key := fmt.Sprintf("%s:%s:%s", w.r.Prefix, w.limit.Name, identifier)
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	// the window is created with its TTL; a key found without one is repaired
	_, err := w.r.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SetNX(ctx, key, 0, w.limit.Window)
		incr = p.Incr(ctx, key)
		ttl = p.TTL(ctx, key)
		return nil
	})
	if err != nil {
		w.r.Log.Warn("rate_limit_store_unavailable", "limit", w.limit.Name, "error", err)
		return true, nil
	}
	if ttl.Val() < 0 {
		if err := w.r.Client.Expire(ctx, key, w.limit.Window).Err(); err != nil {
			w.r.Log.Warn("rate_limit_expire_failed", "limit", w.limit.Name, "error", err)
		}
	}
	return incr.Val() <= int64(w.limit.Max), nil
}

// RateLimit rejects a client IP past its limit with 429.
func RateLimit(l Limit, store echomw.RateLimiterStore) echo.MiddlewareFunc {
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			logging.FromContext(c.Request().Context()).
				Warn("rate_limited", "status", 429, "limit", l.Name, "ip", identifier)
			return domain.Fail(domain.ErrRateLimited, MsgRateLimited)
		},
	})
}
