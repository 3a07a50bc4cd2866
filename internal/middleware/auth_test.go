package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/makeuc/lattice/internal/auth"
)

func TestRequireAuth(t *testing.T) {
	jwtSvc := auth.NewJWTService(auth.Config{Secret: "test-secret-that-is-long-enough-123"})
	access, err := jwtSvc.GenerateAccessToken("profile-1", "ada@example.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	refresh, err := jwtSvc.GenerateRefreshToken("profile-1")
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantReason string
	}{
		{name: "valid token", header: "Bearer " + access, wantStatus: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + access, wantStatus: http.StatusOK},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized, wantReason: "missing"},
		{name: "basic auth", header: "Basic dXNlcjpwYXNz", wantStatus: http.StatusUnauthorized, wantReason: "missing"},
		{name: "garbage token", header: "Bearer not-a-jwt", wantStatus: http.StatusUnauthorized, wantReason: "invalid"},
		{name: "refresh token", header: "Bearer " + refresh, wantStatus: http.StatusUnauthorized, wantReason: "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := NewMetrics()
			var seen, seenEmail string
			handler := RequireAuth(jwtSvc, metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetProfileID(r.Context())
				seenEmail = GetProfileEmail(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/profiles/scored", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if seen != "profile-1" {
					t.Errorf("profile id = %q, want profile-1", seen)
				}
				if seenEmail != "ada@example.com" {
					t.Errorf("profile email = %q, want ada@example.com", seenEmail)
				}
				return
			}

			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error.Code != "unauthorized" {
				t.Errorf("error code = %q, want unauthorized", body.Error.Code)
			}
			if got := counterValue(t, metrics.authFailures.WithLabelValues(tt.wantReason)); got != 1 {
				t.Errorf("auth failures[%s] = %v, want 1", tt.wantReason, got)
			}
		})
	}
}
