package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

var staticRoutes = map[string]bool{
	"/":                   true,
	"/health":             true,
	"/ready":              true,
	"/metrics":            true,
	"/profile":            true,
	"/profile/start":      true,
	"/profile/visibility": true,
	"/profiles/scored":    true,
	"/matches":            true,
	"/matches/inbound":    true,
	"/registrants":        true,
}

// normalizePath maps request paths onto route patterns to bound metric label
// cardinality, e.g. /registrants/verify/123 becomes /registrants/verify/{id}.
// Unknown paths collapse to "other".
func normalizePath(path string) string {
	if staticRoutes[path] {
		return path
	}

	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "registrants" && parts[1] != "" {
		switch {
		case len(parts) == 3 && parts[1] == "verify" && parts[2] != "":
			return "/registrants/verify/{id}"
		case len(parts) == 3 && parts[2] == "resume-url":
			return "/registrants/{id}/resume-url"
		}
	}
	return "other"
}

func isHealthPath(path string) bool {
	return path == "/health" || path == "/ready"
}

// HTTPMetrics records duration, count and response size per route.
// Health checks are excluded.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isHealthPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			metrics.ObserveHTTPRequest(
				r.Method,
				normalizePath(r.URL.Path),
				strconv.Itoa(rw.statusCode),
				time.Since(start).Seconds(),
				rw.size,
			)
		})
	}
}
