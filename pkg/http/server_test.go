package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routes struct{}

func (routes) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.POST("/predict/:model", func(c echo.Context) error {
		return SuccessResponse(c, map[string]string{"model": c.Param("model")})
	})
	e.GET("/panic", func(c echo.Context) error { panic("boom") })
}

type countLimiter struct{ left int }

func (l *countLimiter) Allow(string) bool {
	l.left--
	return l.left >= 0
}

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(echo.HeaderOrigin, "http://dashboard.local")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestServerRateLimitSkipsProbes(t *testing.T) {
	s := NewServer(routes{}, WithRateLimit(&countLimiter{left: 1}))

	assert.Equal(t, http.StatusOK, serve(s, http.MethodPost, "/predict/pasajeros").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(s, http.MethodPost, "/predict/pasajeros").Code)
	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/health").Code)
}

func TestServerMetricsAndCORS(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewServer(routes{}, WithMetrics("/metrics", reg, reg))

	rec := serve(s, http.MethodPost, "/predict/vehiculos")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://dashboard.local", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.JSONEq(t, `{"status":200,"message":"OK","data":{"model":"vehiculos"}}`, rec.Body.String())

	rec = serve(s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `http_requests_total{method="POST",route="/predict/:model",status="200"} 1`))

	assert.Equal(t, http.StatusNoContent, serve(s, http.MethodOptions, "/predict/vehiculos").Code)
}

func TestServerRecoversPanics(t *testing.T) {
	s := NewServer(routes{})

	rec := serve(s, http.MethodGet, "/panic")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal Server Error")
}

func TestAppErrorResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, AppErrorResponse(c, NotFoundError("model not supported").WithParam("options", []string{"pasajeros"})))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"status":404,"message":"Not Found","data":[{"code":"ERR_NOT_FOUND","message":"model not supported","params":{"options":["pasajeros"]}}]}`, rec.Body.String())
}
