package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type stubHandler struct{}

func (stubHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ok", func(c echo.Context) error { return SuccessResponse(c, "fine") })
	e.GET("/missing", func(c echo.Context) error {
		return AppErrorResponse(c, NotFoundError("nothing here"))
	})
	e.GET("/boom", func(c echo.Context) error { panic(errors.New("boom")) })
}

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

func serve(s *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServerWritesRealStatusCodes(t *testing.T) {
	s := NewServer([]Handler{stubHandler{}}, WithMetrics("/metrics", prometheus.NewRegistry()))

	if rec := serve(s, "/ok"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"fine"`) {
		t.Fatalf("ok: %d %s", rec.Code, rec.Body)
	}
	if rec := serve(s, "/missing"); rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "ERR_NOT_FOUND") {
		t.Fatalf("missing: %d %s", rec.Code, rec.Body)
	}
	if rec := serve(s, "/boom"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("panic: %d", rec.Code)
	}
	if rec := serve(s, "/metrics"); !strings.Contains(rec.Body.String(), `http_requests_total{method="GET",route="/ok",status="200"} 1`) {
		t.Fatalf("metrics missing request counter:\n%s", rec.Body)
	}
}

func TestServerRateLimitSkipsExemptRoutes(t *testing.T) {
	s := NewServer([]Handler{stubHandler{}}, WithRateLimit(denyAll{}, "/missing"))

	if rec := serve(s, "/ok"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec := serve(s, "/missing"); rec.Code != http.StatusNotFound {
		t.Fatalf("exempt route should pass, got %d", rec.Code)
	}
}
