package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const defaultLimiterIdle = 10 * time.Minute

// NewRateLimitStore keeps one token bucket per client, refilled at rps tokens
// per second up to burst. Buckets idle for longer than ten minutes are dropped.
func NewRateLimitStore(rps float64, burst int) echomiddleware.RateLimiterStore {
	if burst < 1 {
		burst = 1
	}
	return echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(rps),
		Burst:     burst,
		ExpiresIn: defaultLimiterIdle,
	})
}

// RateLimit rejects requests over the per-IP budget with 429. The client IP
// comes from the Echo instance's IPExtractor. onLimit, when set, is called
// with the route path of each rejected request.
func RateLimit(store echomiddleware.RateLimiterStore, onLimit func(path string)) echo.MiddlewareFunc {
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			if onLimit != nil {
				onLimit(c.Path())
			}
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
		},
	})
}
