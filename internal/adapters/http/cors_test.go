package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jobrunner/waypost/internal/config"
)

func corsServer(origins ...string) *Server {
	return &Server{
		config: config.ServerConfig{
			CORS: config.CORSConfig{AllowedOrigins: origins},
		},
	}
}

func TestOriginHost(t *testing.T) {
	tests := []struct {
		origin string
		want   string
	}{
		{"https://example.com", "example.com"},
		{"https://example.com:8443/path", "example.com"},
		{"http://localhost:3000", "localhost"},
		{"example.com", "example.com"},
	}

	for _, tt := range tests {
		if got := originHost(tt.origin); got != tt.want {
			t.Errorf("originHost(%q) = %q, want %q", tt.origin, got, tt.want)
		}
	}
}

func TestOriginAllowed(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    bool
	}{
		{"exact match", []string{"https://example.com"}, "https://example.com", true},
		{"scheme mismatch", []string{"https://example.com"}, "http://example.com", false},
		{"wildcard subdomain", []string{"*.example.com"}, "https://app.example.com", true},
		{"wildcard deep subdomain", []string{"*.example.com"}, "https://a.b.example.com", true},
		{"wildcard excludes bare domain", []string{"*.example.com"}, "https://example.com", false},
		{"wildcard excludes lookalike", []string{"*.example.com"}, "https://notexample.com", false},
		{"second of several", []string{"https://a.com", "https://b.com"}, "https://b.com", true},
		{"no patterns", nil, "https://example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := corsServer(tt.origins...)
			if got := s.originAllowed(tt.origin); got != tt.want {
				t.Errorf("originAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	s := corsServer("https://example.com")
	handler := s.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.Header.Set("Origin", "https://example.com")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q, want the request origin", got)
	}
	// POST must be allowed for route uploads and export submissions.
	if got := rr.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
		t.Errorf("Access-Control-Allow-Methods = %q, want %q", got, "GET, POST, OPTIONS")
	}
	if got := rr.Header().Get("Vary"); got != "Origin" {
		t.Errorf("Vary = %q, want Origin", got)
	}
}

func TestCORSMiddlewareRejectsUnknownOrigin(t *testing.T) {
	s := corsServer("https://example.com")
	handler := s.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, origin := range []string{"https://evil.com", ""} {
		req := httptest.NewRequest(http.MethodGet, "/search", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("origin %q: unexpected Access-Control-Allow-Origin %q", origin, got)
		}
	}
}

func TestCORSMiddlewarePreflight(t *testing.T) {
	nextCalled := false
	s := corsServer("https://example.com")
	handler := s.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		nextCalled = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/routes", nil)
	req.Header.Set("Origin", "https://example.com")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rr.Code)
	}
	if nextCalled {
		t.Error("preflight request must not reach the next handler")
	}
}

func TestCORSConfigEnabled(t *testing.T) {
	if (config.CORSConfig{}).Enabled() {
		t.Error("empty config reported enabled")
	}
	if !(config.CORSConfig{AllowedOrigins: []string{"https://example.com"}}).Enabled() {
		t.Error("configured origins reported disabled")
	}
}
