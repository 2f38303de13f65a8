package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/powerpit/backend/internal/config"
)

func TestSetupRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	cfg := &config.Config{Environment: "development", JWTSecret: "s", StreamBufferFrames: 4, MaxSimulationFrames: 10}
	SetupRoutes(router, nil, nil, cfg)

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/v1/health", http.StatusOK},
		{http.MethodGet, "/api/v1/simulations", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/simulations", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/simulations/1", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/simulations/1/ws", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/nope", http.StatusNotFound},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("%s %s = %d, want %d", tc.method, tc.path, w.Code, tc.want)
		}
	}

	if got := httptestHeader(router, "/api/v1/health", "Cache-Control"); got == "" {
		t.Error("expected no-cache header in development")
	}
}

func httptestHeader(h http.Handler, path, key string) string {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w.Header().Get(key)
}
