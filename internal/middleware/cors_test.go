package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/powerpit/backend/internal/config"
)

func wsRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WebSocketCORSCheck(cfg))
	r.GET("/ws", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestWebSocketCORSCheck(t *testing.T) {
	prod := &config.Config{Environment: "production", FrontendURL: "https://pit.example.com"}
	dev := &config.Config{Environment: "development"}

	cases := []struct {
		name    string
		cfg     *config.Config
		upgrade bool
		origin  string
		want    int
	}{
		{"plain request passes", prod, false, "https://evil.example.com", http.StatusNoContent},
		{"no origin passes", prod, true, "", http.StatusNoContent},
		{"frontend origin allowed", prod, true, "https://pit.example.com", http.StatusNoContent},
		{"foreign origin rejected", prod, true, "https://evil.example.com", http.StatusForbidden},
		{"localhost in development", dev, true, "http://localhost:3000", http.StatusNoContent},
		{"remote in development", dev, true, "https://pit.example.com", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tc.upgrade {
				req.Header.Set("Connection", "Upgrade")
				req.Header.Set("Upgrade", "websocket")
			}
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			w := httptest.NewRecorder()
			wsRouter(tc.cfg).ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestCORSMiddlewareWithoutFrontend(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware(&config.Config{Environment: "production"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
