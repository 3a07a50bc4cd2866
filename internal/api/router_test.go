package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/makeuc/lattice/internal/middleware"
)

func TestRouter_RequiresAuth(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	routes := []struct{ method, path string }{
		{http.MethodGet, "/profile"},
		{http.MethodPut, "/profile"},
		{http.MethodPost, "/profile/start"},
		{http.MethodPut, "/profile/visibility"},
		{http.MethodGet, "/profiles/scored"},
		{http.MethodPost, "/matches"},
		{http.MethodGet, "/matches/inbound"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := env.do(t, rt.method, rt.path, "", nil)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
			if got := decodeError(t, w).Error.Code; got != ErrCodeUnauthorized {
				t.Errorf("error code = %q", got)
			}
		})
	}

	t.Run("refresh token rejected", func(t *testing.T) {
		refresh, err := env.tokens.GenerateRefreshToken("alice")
		if err != nil {
			t.Fatalf("GenerateRefreshToken() error = %v", err)
		}
		w := env.do(t, http.MethodGet, "/profile", refresh, nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})
}

func TestRouter_NotFound(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	w := env.do(t, http.MethodGet, "/nope", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if got := decodeError(t, w).Error.Code; got != ErrCodeNotFound {
		t.Errorf("error code = %q", got)
	}
}

func TestRouter_HealthEndpoints(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	for _, path := range []string{"/health", "/ready"} {
		w := env.do(t, http.MethodGet, path, "", nil)
		if w.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, w.Code)
		}
	}

	// No metrics handler configured.
	if w := env.do(t, http.MethodGet, "/metrics", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("/metrics status = %d, want 404", w.Code)
	}
}

func TestRouter_RateLimitsPublicRoutes(t *testing.T) {
	env := newTestEnv(t, envOptions{rateLimit: 1})

	first := env.do(t, http.MethodPost, "/registrants", "", validRegistration("ada@example.com"))
	if first.Code != http.StatusCreated {
		t.Fatalf("first status = %d, body: %s", first.Code, first.Body.String())
	}

	second := env.do(t, http.MethodPost, "/registrants", "", validRegistration("grace@example.com"))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if got := decodeError(t, second).Error.Code; got != ErrCodeRateLimited {
		t.Errorf("error code = %q", got)
	}
}

func TestRouter_RateLimitsPerProfile(t *testing.T) {
	env := newTestEnv(t, envOptions{rateLimit: 1})
	seedProfiles(t, env)

	if w := env.do(t, http.MethodGet, "/profile", env.token(t, "alice"), nil); w.Code != http.StatusOK {
		t.Fatalf("alice first status = %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/profile", env.token(t, "alice"), nil); w.Code != http.StatusTooManyRequests {
		t.Errorf("alice second status = %d, want 429", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/profile", env.token(t, "bob"), nil); w.Code != http.StatusOK {
		t.Errorf("bob status = %d, want 200", w.Code)
	}
}

func TestRouter_RequestIDAndCORS(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	req := httptest.NewRequest(http.MethodOptions, "/registrants", nil)
	req.Header.Set("Origin", "http://site.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://site.test" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if got := w.Header().Get(middleware.RequestIDHeader); got != "req-123" {
		t.Errorf("%s = %q, want req-123", middleware.RequestIDHeader, got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("disallowed origin status = %d, want 403", w.Code)
	}
}

func TestRouter_IdempotentRegistration(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/registrants", strings.NewReader(
			`{"full_name":"Ada Lovelace","email":"ada@example.com","degree":"CS","hackathons_attended":1}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.IdempotencyKeyHeader, "form-submit-1")
		w := httptest.NewRecorder()
		env.handler.ServeHTTP(w, req)
		return w
	}

	first := send()
	if first.Code != http.StatusCreated {
		t.Fatalf("first status = %d, body: %s", first.Code, first.Body.String())
	}

	// A retry would otherwise be rejected as a duplicate email.
	second := send()
	if second.Code != http.StatusCreated {
		t.Fatalf("retry status = %d, want 201, body: %s", second.Code, second.Body.String())
	}
	if second.Body.String() != first.Body.String() {
		t.Errorf("retry body = %s, want %s", second.Body.String(), first.Body.String())
	}
	if second.Header().Get(middleware.IdempotentReplayedHeader) != "true" {
		t.Error("retry not marked as replayed")
	}
}

func TestRouter_ConcurrentIdempotentMatchRecordsOneEdge(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	seedProfiles(t, env)
	tok := env.token(t, "alice")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/matches", strings.NewReader(`{"to_id":"bob"}`))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+tok)
			req.Header.Set(middleware.IdempotencyKeyHeader, "like-bob")
			env.handler.ServeHTTP(httptest.NewRecorder(), req)
		}()
	}
	wg.Wait()

	targets, err := env.matches.GetMatchTargets(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetMatchTargets() error = %v", err)
	}
	if len(targets) != 1 {
		t.Errorf("recorded %d match edges, want 1: %v", len(targets), targets)
	}
}
