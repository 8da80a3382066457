package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"o2oprofit/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultConfig()
	cfg.Server.DevMode = true
	cfg.Data.DataDir = filepath.Join(t.TempDir(), "data")

	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func TestServerRoutes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"健康检查", http.MethodGet, "/healthz", http.StatusOK},
		{"系统状态", http.MethodGet, "/api/status", http.StatusOK},
		{"空库计算", http.MethodPost, "/api/calculate", http.StatusOK},
		{"跨域预检", http.MethodOptions, "/api/calculate", http.StatusNoContent},
		{"未知路由", http.MethodGet, "/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d body=%s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestServerCreatesDataDirs(t *testing.T) {
	srv := newTestServer(t)

	dir := filepath.Dir(srv.GetStore().Path())
	for _, sub := range []string{"uploads", "exports"} {
		if _, err := os.Stat(filepath.Join(dir, sub)); err != nil {
			t.Fatalf("missing %s: %v", sub, err)
		}
	}
}
