package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

func TestInMemoryRateLimitStore_Allow(t *testing.T) {
	tests := []struct {
		name          string
		limit         int
		wantAllowed   []bool
		wantRemaining []int
	}{
		{
			name:          "under limit",
			limit:         5,
			wantAllowed:   []bool{true, true, true},
			wantRemaining: []int{4, 3, 2},
		},
		{
			name:          "blocks past limit",
			limit:         2,
			wantAllowed:   []bool{true, true, false, false},
			wantRemaining: []int{1, 0, 0, 0},
		},
		{
			name:          "single request limit",
			limit:         1,
			wantAllowed:   []bool{true, false},
			wantRemaining: []int{0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewInMemoryRateLimitStore()
			config := RateLimitConfig{RequestsPerWindow: tt.limit, WindowDuration: time.Minute}

			for i := range tt.wantAllowed {
				allowed, remaining, retryAfter := store.Allow(context.Background(), "k", config)
				if allowed != tt.wantAllowed[i] {
					t.Errorf("request %d: allowed = %v, want %v", i+1, allowed, tt.wantAllowed[i])
				}
				if remaining != tt.wantRemaining[i] {
					t.Errorf("request %d: remaining = %d, want %d", i+1, remaining, tt.wantRemaining[i])
				}
				if !allowed && (retryAfter < 1 || retryAfter > 60) {
					t.Errorf("request %d: retryAfter = %d, want 1..60", i+1, retryAfter)
				}
			}
		})
	}
}

func TestInMemoryRateLimitStore_WindowExpiry(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }
	config := RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute}

	if allowed, _, _ := store.Allow(context.Background(), "k", config); !allowed {
		t.Fatal("first request should be allowed")
	}
	if allowed, _, retry := store.Allow(context.Background(), "k", config); allowed || retry != 60 {
		t.Fatalf("second request: allowed=%v retry=%d, want blocked with 60", allowed, retry)
	}

	now = now.Add(time.Minute)
	if allowed, _, _ := store.Allow(context.Background(), "k", config); !allowed {
		t.Error("request in new window should be allowed")
	}
}

func TestInMemoryRateLimitStore_DifferentKeys(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	config := RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute}

	a, _, _ := store.Allow(context.Background(), "a", config)
	b, _, _ := store.Allow(context.Background(), "b", config)
	if !a || !b {
		t.Error("independent keys should each get their own quota")
	}
}

func TestInMemoryRateLimitStore_Concurrency(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	config := RateLimitConfig{RequestsPerWindow: 50, WindowDuration: time.Minute}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _, _ := store.Allow(context.Background(), "shared", config); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed = %d, want 50", allowed)
	}
}

func TestInMemoryRateLimitStore_Cleanup(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }

	store.Allow(context.Background(), "short", RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Second})
	store.Allow(context.Background(), "long", RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Hour})

	now = now.Add(time.Minute)
	store.Cleanup()

	if _, ok := store.buckets["short"]; ok {
		t.Error("expired bucket not removed")
	}
	if _, ok := store.buckets["long"]; !ok {
		t.Error("live bucket removed")
	}
}

func TestIPKeyFunc(t *testing.T) {
	keyFunc := IPKeyFunc()

	tests := []struct {
		name          string
		remoteAddr    string
		xForwardedFor string
		xRealIP       string
		want          string
	}{
		{name: "remote addr", remoteAddr: "192.168.1.1:12345", want: "ip:192.168.1.1"},
		{name: "remote addr without port", remoteAddr: "192.168.1.1", want: "ip:192.168.1.1"},
		{name: "ipv6 remote addr", remoteAddr: "[::1]:8080", want: "ip:::1"},
		{name: "forwarded chain", remoteAddr: "10.0.0.1:1", xForwardedFor: "203.0.113.50, 10.0.0.1", want: "ip:203.0.113.50"},
		{name: "real ip", remoteAddr: "10.0.0.1:1", xRealIP: " 198.51.100.1 ", want: "ip:198.51.100.1"},
		{name: "forwarded wins", remoteAddr: "10.0.0.1:1", xForwardedFor: "203.0.113.50", xRealIP: "198.51.100.1", want: "ip:203.0.113.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xForwardedFor != "" {
				req.Header.Set("X-Forwarded-For", tt.xForwardedFor)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}
			if got := keyFunc(req); got != tt.want {
				t.Errorf("key = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProfileKeyFunc(t *testing.T) {
	keyFunc := ProfileKeyFunc()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	if got := keyFunc(req); got != "ip:192.0.2.1" {
		t.Errorf("anonymous key = %q, want ip:192.0.2.1", got)
	}

	req = req.WithContext(SetProfileID(req.Context(), "p-9"))
	if got := keyFunc(req); got != "profile:p-9" {
		t.Errorf("authenticated key = %q, want profile:p-9", got)
	}
}

func TestRateLimiter(t *testing.T) {
	metrics := NewMetrics()
	config := RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute}
	handler := RateLimiter(NewInMemoryRateLimitStore(), config, IPKeyFunc(), metrics)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/matches", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	for i := 0; i < 2; i++ {
		rr := send("192.0.2.1:1")
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rr.Code)
		}
		if got := rr.Header().Get("X-RateLimit-Remaining"); got != strconv.Itoa(1-i) {
			t.Errorf("request %d: remaining = %s, want %d", i+1, got, 1-i)
		}
	}

	rr := send("192.0.2.1:1")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	retry, err := strconv.Atoi(rr.Header().Get("Retry-After"))
	if err != nil || retry < 1 || retry > 60 {
		t.Errorf("Retry-After = %q, want 1..60", rr.Header().Get("Retry-After"))
	}
	if rr.Header().Get("X-RateLimit-Reset") == "" {
		t.Error("missing X-RateLimit-Reset")
	}
	if got := rr.Header().Get("X-RateLimit-Limit"); got != "2" {
		t.Errorf("X-RateLimit-Limit = %q, want 2", got)
	}

	if rr := send("192.0.2.2:1"); rr.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", rr.Code)
	}

	if got := counterValue(t, metrics.rateLimitBlocked.WithLabelValues("/matches", "ip")); got != 1 {
		t.Errorf("blocked counter = %v, want 1", got)
	}
	if got := counterValue(t, metrics.rateLimitRequests.WithLabelValues("/matches", "ip")); got != 4 {
		t.Errorf("requests counter = %v, want 4", got)
	}
}

func TestRateLimitConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  RateLimitConfig
		wantErr bool
	}{
		{"valid", RateLimitConfig{RequestsPerWindow: 60, WindowDuration: time.Minute}, false},
		{"zero requests", RateLimitConfig{RequestsPerWindow: 0, WindowDuration: time.Minute}, true},
		{"negative window", RateLimitConfig{RequestsPerWindow: 1, WindowDuration: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

var (
	_ RateLimitStore = (*InMemoryRateLimitStore)(nil)
	_ RateLimitStore = (*RedisRateLimitStore)(nil)
)
