package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveThrough runs one request through SecurityMiddleware and reports
// whether the wrapped handler ran.
func serveThrough(cfg SecurityConfig, req *http.Request) (*httptest.ResponseRecorder, bool) {
	reached := false
	h := SecurityMiddleware(cfg, func(w http.ResponseWriter, _ *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("inner"))
	})
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec, reached
}

func TestDefaultSecurityConfig(t *testing.T) {
	cfg := DefaultSecurityConfig()
	assert.True(t, cfg.EnableCORS)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.ElementsMatch(t, []string{"GET", "OPTIONS"}, cfg.AllowedMethods, "the API never advertises write methods")
	assert.Equal(t, 10_000, cfg.MaxHistoryLimit)
}

func TestSecurityMiddleware_HardeningHeaders(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions} {
		t.Run(method, func(t *testing.T) {
			rec, _ := serveThrough(DefaultSecurityConfig(), httptest.NewRequest(method, "/api/stats", http.NoBody))
			want := map[string]string{
				"X-Content-Type-Options":  "nosniff",
				"X-Frame-Options":         "DENY",
				"X-XSS-Protection":        "1; mode=block",
				"Referrer-Policy":         "strict-origin-when-cross-origin",
				"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
			}
			for header, value := range want {
				assert.Equal(t, value, rec.Header().Get(header), header)
			}
		})
	}
}

func TestSecurityMiddleware_Origins(t *testing.T) {
	restricted := SecurityConfig{
		EnableCORS:     true,
		AllowedOrigins: []string{"http://grafana.local", "http://ops.local"},
		AllowedMethods: []string{"GET"},
	}
	tests := []struct {
		name   string
		cfg    SecurityConfig
		origin string
		want   string
	}{
		{"disabled", SecurityConfig{AllowedOrigins: []string{"*"}}, "http://grafana.local", ""},
		{"wildcard", DefaultSecurityConfig(), "http://anywhere.local", "*"},
		{"wildcard without origin", DefaultSecurityConfig(), "", "*"},
		{"listed first", restricted, "http://grafana.local", "http://grafana.local"},
		{"listed second", restricted, "http://ops.local", "http://ops.local"},
		{"unlisted", restricted, "http://evil.local", ""},
		{"no origin against list", restricted, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/history", http.NoBody)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec, reached := serveThrough(tt.cfg, req)
			require.True(t, reached)

			h := rec.Header()
			assert.Equal(t, tt.want, h.Get("Access-Control-Allow-Origin"))
			if tt.want == "" {
				assert.Empty(t, h.Get("Access-Control-Allow-Methods"))
				return
			}
			assert.Equal(t, "Content-Type", h.Get("Access-Control-Allow-Headers"))
			assert.Equal(t, "86400", h.Get("Access-Control-Max-Age"))
		})
	}
}

func TestSecurityMiddleware_PreflightShortCircuits(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/history", http.NoBody)
	req.Header.Set("Origin", "http://grafana.local")
	rec, reached := serveThrough(DefaultSecurityConfig(), req)

	assert.False(t, reached)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestReadOnlyAPI(t *testing.T) {
	s, _ := newTestServer(t, 3)
	h := s.Handler()

	t.Run("preflight on history", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/history", http.NoBody)
		req.Header.Set("Origin", "http://grafana.local")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.NotContains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("writes are rejected with Allow", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(method, "/api/history", http.NoBody))

			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
			assert.Equal(t, "GET, HEAD", rec.Header().Get("Allow"), method)
			assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"), method)
		}
	})

	t.Run("head is served", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/api/history", http.NoBody))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
