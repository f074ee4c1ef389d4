package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	metrics "github.com/corvusHold/certmail/internal/metrics"
)

// Policy defines a fixed-window rate limit: Limit requests within Window per derived key.
type Policy struct {
	// Name identifies the limited endpoint in logs and metrics (e.g. "mail:send").
	Name   string
	Window time.Duration
	Limit  int
	// Optional per-request resolvers overriding Window/Limit when they return > 0.
	WindowFunc func(echo.Context) time.Duration
	LimitFunc  func(echo.Context) int
	// Key builds the bucket key for this request.
	Key func(echo.Context) string
}

// Store is a shared fixed-window counter store (e.g., Redis).
type Store interface {
	// Allow increments the counter for key and reports whether the request fits the window.
	// When it does not, retryAfterSec is the number of seconds until the window resets.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, retryAfterSec int, err error)
}

// MemoryStore is a process-local Store. Multi-instance deployments should use NewRedisStore.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	buckets map[string]*bucket
}

type bucket struct {
	start time.Time
	count int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now, buckets: make(map[string]*bucket)}
}

func (m *MemoryStore) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[key]
	if !ok || now.Sub(b.start) >= window {
		m.buckets[key] = &bucket{start: now, count: 1}
		return true, 0, nil
	}
	if b.count < limit {
		b.count++
		return true, 0, nil
	}
	retry := int((window - now.Sub(b.start) + time.Second - 1) / time.Second)
	return false, retry, nil
}

// Middleware enforces p against s. Store errors fail open.
func Middleware(p Policy, s Store) echo.MiddlewareFunc {
	if p.Window <= 0 {
		p.Window = time.Minute
	}
	if p.Limit <= 0 {
		p.Limit = 60
	}
	if s == nil {
		s = NewMemoryStore()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "global"
			if p.Key != nil {
				key = p.Key(c)
			}
			win := p.Window
			lim := p.Limit
			if p.WindowFunc != nil {
				if w := p.WindowFunc(c); w > 0 {
					win = w
				}
			}
			if p.LimitFunc != nil {
				if l := p.LimitFunc(c); l > 0 {
					lim = l
				}
			}
			allowed, retryAfter, err := s.Allow(c.Request().Context(), key, lim, win)
			if err != nil || allowed {
				return next(c)
			}
			src := "ip"
			if strings.Contains(key, ":acct:") {
				src = "account"
			}
			metrics.IncRateLimitExceeded(p.Name, src)
			c.Logger().Warnf("rate limit exceeded: endpoint=%s key=%s limit=%d window=%s retry_after=%ds", p.Name, key, lim, win.String(), retryAfter)
			if retryAfter > 0 {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
			}
			return c.JSON(http.StatusTooManyRequests, map[string]string{"message": "rate limit exceeded"})
		}
	}
}

// KeyAccountOrIP buckets by the value returned from principal (the authenticated
// account email) and falls back to the caller's IP.
func KeyAccountOrIP(prefix string, principal func(echo.Context) (string, bool)) func(echo.Context) string {
	return func(c echo.Context) string {
		if principal != nil {
			if who, ok := principal(c); ok && who != "" {
				return prefix + ":acct:" + strings.ToLower(who)
			}
		}
		return prefix + ":ip:" + c.RealIP()
	}
}
