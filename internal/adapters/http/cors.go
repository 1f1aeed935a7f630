package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"net/http"
	"strings"
)

// corsMiddleware reflects allowed origins and answers preflight requests.
// Route uploads and export submissions go through POST, so preflights for
// those must succeed too.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && s.originAllowed(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Accept, Content-Type, Authorization")
			h.Set("Access-Control-Max-Age", "86400")
			h.Set("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// originAllowed reports whether the origin matches any configured pattern,
// either exactly or through a "*.domain.tld" wildcard. Wildcards match true
// subdomains only, never the bare domain.
func (s *Server) originAllowed(origin string) bool {
	host := originHost(origin)
	for _, pattern := range s.config.CORS.AllowedOrigins {
		if origin == pattern {
			return true
		}

		suffix, ok := strings.CutPrefix(pattern, "*")
		if !ok || !strings.HasPrefix(suffix, ".") {
			continue
		}
		if strings.HasSuffix(host, suffix) && len(host) > len(suffix) {
			return true
		}
	}
	return false
}

// originHost strips scheme, port and path from an origin value:
// "https://app.example.com:8443/x" becomes "app.example.com".
func originHost(origin string) string {
	host := origin
	if _, rest, ok := strings.Cut(host, "://"); ok {
		host = rest
	}
	host, _, _ = strings.Cut(host, ":")
	host, _, _ = strings.Cut(host, "/")
	return host
}
