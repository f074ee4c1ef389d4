package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestProbe_ReportsStatusAndGauge(t *testing.T) {
	ok := Probe(context.Background(), "postgres", func(context.Context) error { return nil })
	assert.Equal(t, "ok", ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(dependencyUp.WithLabelValues("postgres")))

	down := Probe(context.Background(), "redis", func(context.Context) error { return errors.New("refused") })
	assert.Equal(t, "down", down)
	assert.Equal(t, 0.0, testutil.ToFloat64(dependencyUp.WithLabelValues("redis")))
}

func TestIncMessage_DefaultsLabels(t *testing.T) {
	before := testutil.ToFloat64(messagesTotal.WithLabelValues("unknown", "unknown"))
	IncMessage("", "")
	assert.Equal(t, before+1, testutil.ToFloat64(messagesTotal.WithLabelValues("unknown", "unknown")))
}

func TestHTTPMiddleware_CountsRoute(t *testing.T) {
	e := echo.New()
	e.Use(HTTPMiddleware())
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusTeapot, "x") })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/ping", "418"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/ping", "418")))
}

func TestHTTPMiddleware_InFlightReturnsToZero(t *testing.T) {
	e := echo.New()
	e.Use(HTTPMiddleware())
	var during float64
	e.GET("/slow", func(c echo.Context) error {
		during = testutil.ToFloat64(httpInFlight)
		return c.NoContent(http.StatusNoContent)
	})

	before := testutil.ToFloat64(httpInFlight)
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/slow", nil))

	assert.Equal(t, before+1, during)
	assert.Equal(t, before, testutil.ToFloat64(httpInFlight))
}
