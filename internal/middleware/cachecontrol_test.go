package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCacheControlHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CacheControl(DefaultCachePolicies()))
	handler := func(c *gin.Context) { c.String(200, "ok") }
	r.GET("/api/safe-zones", handler)
	r.GET("/api/notifications", handler)
	r.GET("/static/app.js", handler)
	r.GET("/api/other", handler)

	cases := []struct {
		path string
		want string
	}{
		{"/api/safe-zones", "public, max-age=300, stale-while-revalidate=600"},
		{"/api/notifications", "no-store"},
		{"/static/app.js", "public, max-age=86400, stale-while-revalidate=604800"},
		{"/api/other", "no-store"},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", tc.path, nil)
		r.ServeHTTP(w, req)
		if got := w.Header().Get("Cache-Control"); got != tc.want {
			t.Fatalf("%s: Cache-Control = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestCachePolicyHeader(t *testing.T) {
	p := CachePolicy{MaxAge: 60}
	if got := p.Header(); got != "public, max-age=60" {
		t.Fatalf("Header() = %q", got)
	}

	p = CachePolicy{MaxAge: 60, StaleWhileRevalidate: 120}
	if got := p.Header(); got != "public, max-age=60, stale-while-revalidate=120" {
		t.Fatalf("Header() = %q", got)
	}
}
