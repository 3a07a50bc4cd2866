package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "/"},
		{"/health", "/health"},
		{"/profiles/scored", "/profiles/scored"},
		{"/profile/visibility", "/profile/visibility"},
		{"/matches", "/matches"},
		{"/registrants", "/registrants"},
		{"/registrants/verify/550e8400-e29b-41d4-a716-446655440000", "/registrants/verify/{id}"},
		{"/registrants/abc/resume-url", "/registrants/{id}/resume-url"},
		{"/registrants/verify/", "other"},
		{"/registrants/abc", "other"},
		{"/wp-admin/login.php", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := normalizePath(tt.path); got != tt.want {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestHTTPMetrics(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		path        string
		status      int
		wantLabels  map[string]string
		wantMetrics bool
	}{
		{
			name:        "scored profiles",
			method:      http.MethodGet,
			path:        "/profiles/scored",
			status:      http.StatusOK,
			wantLabels:  map[string]string{"method": "GET", "route": "/profiles/scored", "status": "200"},
			wantMetrics: true,
		},
		{
			name:        "verify collapses id",
			method:      http.MethodGet,
			path:        "/registrants/verify/123",
			status:      http.StatusFound,
			wantLabels:  map[string]string{"method": "GET", "route": "/registrants/verify/{id}", "status": "302"},
			wantMetrics: true,
		},
		{
			name:   "health excluded",
			method: http.MethodGet,
			path:   "/health",
			status: http.StatusOK,
		},
		{
			name:   "ready excluded",
			method: http.MethodGet,
			path:   "/ready",
			status: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMetrics()
			reg := prometheus.NewRegistry()
			if err := m.Register(reg); err != nil {
				t.Fatalf("Register() failed: %v", err)
			}

			handler := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("{}"))
			}))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}

			families, err := reg.Gather()
			if err != nil {
				t.Fatalf("Gather() failed: %v", err)
			}

			var entries int
			for _, mf := range families {
				if mf.GetName() != MetricHTTPRequestsTotal {
					continue
				}
				for _, metric := range mf.GetMetric() {
					entries++
					labels := make(map[string]string)
					for _, l := range metric.GetLabel() {
						labels[l.GetName()] = l.GetValue()
					}
					for k, v := range tt.wantLabels {
						if labels[k] != v {
							t.Errorf("label %s = %q, want %q", k, labels[k], v)
						}
					}
					if metric.GetCounter().GetValue() != 1 {
						t.Errorf("counter = %v, want 1", metric.GetCounter().GetValue())
					}
				}
			}

			if tt.wantMetrics && entries != 1 {
				t.Errorf("expected 1 request entry, got %d", entries)
			}
			if !tt.wantMetrics && entries != 0 {
				t.Errorf("expected no request entries, got %d", entries)
			}
		})
	}
}
