package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-signing-key"

func newEcho() *echo.Echo {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		email, _ := Email(c)
		return c.String(http.StatusOK, email)
	}, NewBearer(testKey))
	return e
}

func call(e *echo.Echo, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestBearer_ResolvesEmail(t *testing.T) {
	tok, err := Sign(testKey, "owner@example.com", time.Hour)
	require.NoError(t, err)

	rec := call(newEcho(), "Bearer "+tok)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "owner@example.com", rec.Body.String())
}

func TestBearer_RejectsMissingAndMalformed(t *testing.T) {
	e := newEcho()
	assert.Equal(t, http.StatusUnauthorized, call(e, "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(e, "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, call(e, "Bearer ").Code)
	assert.Equal(t, http.StatusUnauthorized, call(e, "Bearer not-a-jwt").Code)
}

func TestBearer_RejectsWrongKeyAndMissingClaim(t *testing.T) {
	e := newEcho()

	other, err := Sign("another-key", "owner@example.com", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(e, "Bearer "+other).Code)

	noEmail, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).SignedString([]byte(testKey))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(e, "Bearer "+noEmail).Code)

	expired, err := Sign(testKey, "owner@example.com", -time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(e, "Bearer "+expired).Code)
}
