package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	redisrepo "github.com/iho/campuswallet/internal/adapter/repository/redis"
	"github.com/iho/campuswallet/internal/domain"
	"github.com/iho/campuswallet/internal/usecase"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency keys.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyReplayHeader marks a response served from the store.
	IdempotencyReplayHeader = "X-Idempotency-Replay"

	defaultIdempotencyTTL = 24 * time.Hour
	maxIdempotencyKeyLen  = 128

	// finalizeTimeout bounds the store write that settles a claim. It runs
	// detached from the request so a client hang-up cannot strand the claim.
	finalizeTimeout = 5 * time.Second
)

// storedResponse is what a completed request leaves behind for replays.
type storedResponse struct {
	Body   json.RawMessage `json:"body"`
	Status int             `json:"status"`
}

// IdempotencyMiddleware replays the first successful response for a repeated
// Idempotency-Key. Keys are scoped to the caller and route.
type IdempotencyMiddleware struct {
	store usecase.IdempotencyStore
	ttl   time.Duration
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware. A non-positive
// ttl uses 24 hours.
func NewIdempotencyMiddleware(store usecase.IdempotencyStore, ttl time.Duration) *IdempotencyMiddleware {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyMiddleware{store: store, ttl: ttl}
}

// Wrap wraps an http.Handler with idempotency checking.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only apply to mutating requests
		if r.Method != http.MethodPost && r.Method != http.MethodPut {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			writeError(w, http.StatusBadRequest, "INVALID_IDEMPOTENCY_KEY", "idempotency key too long")
			return
		}

		scoped := scopeKey(r, key)

		exists, cached, err := m.store.CheckAndSet(r.Context(), scoped, nil, m.ttl)
		if err != nil {
			log.Error().Err(err).Str("path", r.URL.Path).Msg("idempotency check failed")
			writeError(w, http.StatusServiceUnavailable, "IDEMPOTENCY_UNAVAILABLE", "idempotency check failed")
			return
		}

		if exists {
			if string(cached) == redisrepo.PendingMarker {
				writeError(w, http.StatusConflict, "REQUEST_IN_PROGRESS", "a request with this idempotency key is still in progress")
				return
			}
			replay(w, cached)
			return
		}

		// A panicking handler must not leave the key claimed until the TTL.
		defer func() {
			if rec := recover(); rec != nil {
				m.release(r, scoped)
				panic(rec)
			}
		}()

		recorder := &responseRecorder{
			ResponseWriter: w,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}
		next.ServeHTTP(recorder, r)

		// Failed requests may be retried under the same key.
		if recorder.statusCode < 200 || recorder.statusCode >= 300 {
			m.release(r, scoped)
			return
		}

		data, err := json.Marshal(storedResponse{Status: recorder.statusCode, Body: recorder.body.Bytes()})
		if err != nil {
			m.release(r, scoped)
			return
		}

		ctx, cancel := finalizeContext(r)
		defer cancel()
		if err := m.store.Update(ctx, scoped, data, m.ttl); err != nil {
			log.Warn().Err(err).Str("path", r.URL.Path).Msg("idempotency update failed")
		}
	})
}

func (m *IdempotencyMiddleware) release(r *http.Request, scoped string) {
	ctx, cancel := finalizeContext(r)
	defer cancel()
	if err := m.store.Release(ctx, scoped); err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("idempotency release failed")
	}
}

func finalizeContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), finalizeTimeout)
}

func scopeKey(r *http.Request, key string) string {
	caller := "anonymous"
	if p, ok := domain.PrincipalFromContext(r.Context()); ok {
		caller = p.ExternalID
	}
	return caller + "|" + r.Method + " " + r.URL.Path + "|" + key
}

func replay(w http.ResponseWriter, cached []byte) {
	var stored storedResponse
	if err := json.Unmarshal(cached, &stored); err != nil || stored.Status == 0 {
		stored = storedResponse{Status: http.StatusOK, Body: cached}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(IdempotencyReplayHeader, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
