package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/labstack/echo/v4"
)

// Store is satisfied by *redis.Client.
type Store interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type Policy struct {
	Name   string
	Limit  int64
	Window time.Duration
}

func (p Policy) enabled() bool {
	return p.Limit > 0 && p.Window > 0
}

func (p Policy) scope(ip string) string {
	name := strings.ToLower(strings.TrimSpace(p.Name))
	if name == "" {
		name = "default"
	}
	sum := sha256.Sum256([]byte(ip))
	return name + ":ip:" + hex.EncodeToString(sum[:8])
}

// PerIP limits requests per client IP in fixed windows. Store errors let the
// request through so a cache outage does not take the endpoint down.
func PerIP(policy Policy, store Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if store == nil || !policy.enabled() {
			return next
		}
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			l := logging.FromContext(ctx).With("policy", policy.Name)

			allowed, count, err := store.FixedWindowAllow(ctx, policy.scope(c.RealIP()), policy.Limit, policy.Window)
			if err != nil {
				l.Warn("rate_limit_store_error", "error", err)
				return next(c)
			}
			if !allowed {
				l.Warn("rate_limit_blocked", "attempts", count, "limit", policy.Limit, "window_seconds", int(policy.Window.Seconds()))
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Seconds())))
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many requests, try again later"})
			}
			return next(c)
		}
	}
}
