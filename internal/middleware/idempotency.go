package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/makeuc/lattice/internal/idempotency"
)

// IdempotencyKeyHeader is the HTTP header name for idempotency keys.
const IdempotencyKeyHeader = "Idempotency-Key"

// IdempotentReplayedHeader marks a response served from the idempotency store.
const IdempotentReplayedHeader = "Idempotent-Replayed"

// captureWriter records the status and body while passing them through.
type captureWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
	written    bool
}

func (w *captureWriter) WriteHeader(statusCode int) {
	if !w.written {
		w.statusCode = statusCode
		w.written = true
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.written = true
	n, err := w.ResponseWriter.Write(b)
	w.body.Write(b[:n])
	return n, err
}

func (w *captureWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Idempotency replays the stored response when a request repeats an
// Idempotency-Key. Keys are optional and scoped by keyFunc, so two callers
// cannot see each other's responses. The key is reserved before the handler
// runs, so a concurrent duplicate gets 409 instead of a second execution.
// Only 2xx responses are stored; any other outcome releases the key. Store
// failures never fail the request.
func Idempotency(store idempotency.Store, keyFunc KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := r.Header.Get(IdempotencyKeyHeader)
			if clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			if err := idempotency.ValidateKey(clientKey); err != nil {
				code, message := "invalid_idempotency_key", "Invalid Idempotency-Key format"
				if errors.Is(err, idempotency.ErrKeyTooLong) {
					code, message = "idempotency_key_too_long", "Idempotency-Key exceeds maximum length of 64 characters"
				}
				SetErrorCode(r.Context(), code)
				writeError(w, http.StatusBadRequest, code, message)
				return
			}

			ctx := r.Context()
			route := normalizePath(r.URL.Path)
			key := keyFunc(r) + "|" + r.Method + " " + r.URL.Path + "|" + clientKey

			err := store.Reserve(ctx, key)
			switch {
			case errors.Is(err, idempotency.ErrKeyExists):
				replayOrConflict(w, r, store, key, route)
				return
			case err != nil:
				slog.ErrorContext(ctx, "failed to reserve idempotency key", "route", route, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			cw := &captureWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(cw, r)

			// Work on a context that outlives a client disconnect so the key
			// never stays reserved after the handler returns.
			storeCtx := context.WithoutCancel(ctx)
			if cw.statusCode < 200 || cw.statusCode >= 300 {
				if err := store.Release(storeCtx, key); err != nil {
					slog.ErrorContext(ctx, "failed to release idempotency key", "route", route, "error", err)
				}
				return
			}
			body := cw.body.Bytes()
			rec := &idempotency.Record{
				Key:         key,
				Method:      r.Method,
				Route:       route,
				StatusCode:  cw.statusCode,
				ContentType: w.Header().Get("Content-Type"),
				Body:        body,
				BodyHash:    idempotency.ComputeResponseHash(body),
			}
			if err := store.Complete(storeCtx, rec); err != nil {
				slog.ErrorContext(ctx, "failed to store idempotency key", "route", route, "error", err)
			}
		})
	}
}

// replayOrConflict answers a request whose key is already taken: with the
// stored response once it exists, or 409 while the first request runs.
func replayOrConflict(w http.ResponseWriter, r *http.Request, store idempotency.Store, key, route string) {
	ctx := r.Context()
	existing, err := store.Get(ctx, key)
	switch {
	case err == nil && !existing.Pending() && existing.Verify():
		slog.InfoContext(ctx, "replaying stored response",
			"route", route,
			"status", existing.StatusCode,
		)
		if existing.ContentType != "" {
			w.Header().Set("Content-Type", existing.ContentType)
		}
		w.Header().Set(IdempotentReplayedHeader, "true")
		w.WriteHeader(existing.StatusCode)
		_, _ = w.Write(existing.Body)
	case err == nil && !existing.Pending():
		slog.WarnContext(ctx, "stored response failed integrity check", "route", route)
		SetErrorCode(ctx, "idempotency_record_invalid")
		writeError(w, http.StatusInternalServerError, "idempotency_record_invalid", "Stored response for this Idempotency-Key is unreadable")
	default:
		SetErrorCode(ctx, "idempotency_key_in_use")
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusConflict, "idempotency_key_in_use", "A request with this Idempotency-Key is still in progress")
	}
}
