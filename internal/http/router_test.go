package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rtr-ops/backend/internal/config"
	"github.com/rtr-ops/backend/internal/db"
	"github.com/rtr-ops/backend/internal/http/handlers"
	"github.com/rtr-ops/backend/internal/http/middleware"
	"github.com/rtr-ops/backend/internal/service"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	importer := service.NewImporter(db.NewMemStore(), service.Options{Atomic: true}, zerolog.Nop())
	cfg := config.Config{AdminKey: "secret", CORSAllowed: "*", MaxUploadSizeMB: 1}
	return Router(cfg, nil, importer, zerolog.Nop())
}

func TestRouterAdminKey(t *testing.T) {
	r := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/permits/refresh", nil)
	req.Header.Set(handlers.ActorHeader, "ops")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/permits/refresh", nil)
	req.Header.Set(handlers.ActorHeader, "ops")
	req.Header.Set("X-Admin-Key", "secret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs/latest", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterHealthAndMetrics(t *testing.T) {
	r := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-fixed")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "req-fixed", w.Header().Get(middleware.RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.True(t, strings.HasPrefix(w.Header().Get(middleware.RequestIDHeader), "req_"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "rtr_http_requests_total")
}
