package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_FixedWindow(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, err := s.Allow(ctx, "k", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, retry, err := s.Allow(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 60, retry)

	s.now = func() time.Time { return base.Add(time.Minute) }
	ok, _, _ = s.Allow(ctx, "k", 2, time.Minute)
	assert.True(t, ok)
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (bool, int, error) {
	return false, 0, errors.New("redis down")
}

func TestMiddleware_BlocksAndFailsOpen(t *testing.T) {
	principal := func(c echo.Context) (string, bool) { return c.Request().Header.Get("X-Who"), true }
	p := Policy{Name: "mail:send", Limit: 1, Window: time.Minute, Key: KeyAccountOrIP("mail:send", principal)}

	e := echo.New()
	e.GET("/limited", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, Middleware(p, NewMemoryStore()))
	e.GET("/open", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, Middleware(p, failingStore{}))

	do := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Who", "Owner@Example.com")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do("/limited").Code)
	blocked := do("/limited")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do("/open").Code)
	assert.Equal(t, http.StatusOK, do("/open").Code)
}

func TestKeyAccountOrIP(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())

	anon := KeyAccountOrIP("p", func(echo.Context) (string, bool) { return "", false })
	assert.Equal(t, "p:ip:10.0.0.1", anon(c))

	named := KeyAccountOrIP("p", func(echo.Context) (string, bool) { return "A@B.com", true })
	assert.Equal(t, "p:acct:a@b.com", named(c))
}
