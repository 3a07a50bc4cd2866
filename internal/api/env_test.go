package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/makeuc/lattice/internal/auth"
	"github.com/makeuc/lattice/internal/discovery"
	"github.com/makeuc/lattice/internal/idempotency"
	"github.com/makeuc/lattice/internal/match"
	"github.com/makeuc/lattice/internal/middleware"
	"github.com/makeuc/lattice/internal/profile"
	"github.com/makeuc/lattice/internal/registration"
	"github.com/makeuc/lattice/internal/upload"
)

const testSecret = "test-secret-that-is-at-least-32-characters"

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// toggleLedger reads from the match store unless err is set.
type toggleLedger struct {
	match.Store
	err error
}

func (l *toggleLedger) GetMatchTargets(ctx context.Context, fromID string) ([]string, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.Store.GetMatchTargets(ctx, fromID)
}

type fakeUploader struct {
	err error
}

func (f fakeUploader) GenerateResumeURL(ctx context.Context, req upload.ResumeURLRequest) (*upload.SignedURL, error) {
	if f.err != nil {
		return nil, f.err
	}
	key := "resumes/" + req.OwnerID + "/resume.pdf"
	return &upload.SignedURL{
		URL:       "https://r2.example.com/bucket/" + key + "?X-Amz-Signature=abc",
		Key:       key,
		ExpiresAt: time.Date(2026, 10, 1, 0, 5, 0, 0, time.UTC),
	}, nil
}

type testEnv struct {
	profiles      *profile.InMemoryStore
	matches       *match.InMemoryLedger
	ledger        *toggleLedger
	registrations *registration.InMemoryRepository
	tokens        *auth.JWTService
	handler       http.Handler
}

type envOptions struct {
	uploader  registration.ResumeUploader
	rateLimit int
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	env := &testEnv{
		profiles:      profile.NewInMemoryStore(),
		matches:       match.NewInMemoryLedger(),
		registrations: registration.NewInMemoryRepository(),
		tokens:        auth.NewJWTService(auth.Config{Secret: testSecret}),
	}
	env.ledger = &toggleLedger{Store: env.matches}

	ranker, err := discovery.NewService(discovery.ServiceConfig{
		Profiles: env.profiles,
		Ledger:   env.ledger,
		Logger:   quietLogger,
	})
	if err != nil {
		t.Fatalf("discovery.NewService() error = %v", err)
	}

	regs, err := registration.NewService(registration.ServiceConfig{
		Repository: env.registrations,
		Uploader:   opts.uploader,
		Mail:       registration.MailConfig{ServerHost: "http://api.test", WebsiteURL: "http://site.test"},
		Logger:     quietLogger,
	})
	if err != nil {
		t.Fatalf("registration.NewService() error = %v", err)
	}

	limit := opts.rateLimit
	if limit == 0 {
		limit = 1000
	}

	env.handler = NewRouter(RouterConfig{
		Profiles:       NewProfileHandlers(profile.NewService(env.profiles, quietLogger), ranker),
		Matches:        NewMatchHandlers(match.NewService(env.matches, env.profiles, quietLogger)),
		Registrations:  NewRegistrationHandlers(regs, "http://site.test/"),
		Health:         NewHealthHandlers(),
		Tokens:         env.tokens,
		Metrics:        middleware.NewMetrics(),
		RateLimitStore: middleware.NewInMemoryRateLimitStore(),
		RateLimit:      middleware.RateLimitConfig{RequestsPerWindow: limit, WindowDuration: time.Minute},
		Idempotency:    idempotency.NewInMemoryStore(),
		CORS:           middleware.WebsiteCORS("http://site.test"),
		Logger:         quietLogger,
	})
	return env
}

func (e *testEnv) addProfile(t *testing.T, p *profile.Profile) {
	t.Helper()
	if err := e.profiles.Insert(context.Background(), p); err != nil {
		t.Fatalf("Insert(%s) error = %v", p.ID, err)
	}
}

func (e *testEnv) token(t *testing.T, profileID string) string {
	t.Helper()
	tok, err := e.tokens.GenerateAccessToken(profileID, profileID+"@example.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	return tok
}

// do sends a request through the full router. An empty token sends no
// Authorization header.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to parse body: %v, body: %s", err, w.Body.String())
	}
}
