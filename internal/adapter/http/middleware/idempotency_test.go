package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	redisrepo "github.com/iho/campuswallet/internal/adapter/repository/redis"
	"github.com/iho/campuswallet/internal/domain"
)

type fakeIdempotencyStore struct {
	checkAndSetFn func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	updateFn      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
	releaseFn     func(ctx context.Context, key string) error
}

func (f *fakeIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if f.checkAndSetFn != nil {
		return f.checkAndSetFn(ctx, key, response, ttl)
	}
	return false, nil, nil
}

func (f *fakeIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, key, response, ttl)
	}
	return nil
}

func (f *fakeIdempotencyStore) Release(ctx context.Context, key string) error {
	if f.releaseFn != nil {
		return f.releaseFn(ctx, key)
	}
	return nil
}

// memoryStore is an in-memory store with the same claim semantics as Redis.
type memoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte)}
}

func (s *memoryStore) CheckAndSet(_ context.Context, key string, response []byte, _ time.Duration) (bool, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data[key]; ok {
		return true, v, nil
	}
	if response == nil {
		response = []byte(redisrepo.PendingMarker)
	}
	s.data[key] = response
	return false, nil, nil
}

func (s *memoryStore) Update(_ context.Context, key string, response []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = response
	return nil
}

func (s *memoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func postWithKey(key string, p *domain.Principal) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", bytes.NewBufferString(`{}`))
	req.Header.Set(IdempotencyKeyHeader, key)
	if p != nil {
		req = req.WithContext(domain.WithPrincipal(req.Context(), p))
	}
	return req
}

func TestIdempotencyMiddleware_FailsClosedOnStoreErrors(t *testing.T) {
	var called bool
	store := &fakeIdempotencyStore{
		checkAndSetFn: func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
			return false, nil, context.DeadlineExceeded
		},
	}
	mw := NewIdempotencyMiddleware(store, time.Minute)

	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rr, postWithKey("key-err", nil))

	if called {
		t.Fatalf("handler should not be called when store errors")
	}
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}

func TestIdempotencyMiddleware_ReleasesFailedResponses(t *testing.T) {
	var updated, released bool
	store := &fakeIdempotencyStore{
		updateFn: func(ctx context.Context, key string, response []byte, ttl time.Duration) error {
			updated = true
			return nil
		},
		releaseFn: func(ctx context.Context, key string) error {
			released = true
			return nil
		},
	}
	mw := NewIdempotencyMiddleware(store, time.Minute)

	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})).ServeHTTP(rr, postWithKey("key-fail", nil))

	if updated {
		t.Fatalf("expected error responses not to be cached")
	}
	if !released {
		t.Fatalf("expected the claim to be released")
	}
}

func TestIdempotencyMiddleware_ReplaysFirstResponse(t *testing.T) {
	store := newMemoryStore()
	mw := NewIdempotencyMiddleware(store, time.Minute)

	calls := 0
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"tx-1"}`))
	}))

	p := &domain.Principal{AccountID: 1, ExternalID: "S001"}

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, postWithKey("k1", p))

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, postWithKey("k1", p))

	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed status 201, got %d", second.Code)
	}
	if second.Header().Get(IdempotencyReplayHeader) != "true" {
		t.Fatalf("expected replay header")
	}
	if strings.TrimSpace(second.Body.String()) != `{"id":"tx-1"}` {
		t.Fatalf("expected original body, got %s", second.Body.String())
	}
}

func TestIdempotencyMiddleware_KeysAreScopedToCaller(t *testing.T) {
	store := newMemoryStore()
	mw := NewIdempotencyMiddleware(store, time.Minute)

	calls := 0
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), postWithKey("shared", &domain.Principal{AccountID: 1, ExternalID: "S001"}))
	handler.ServeHTTP(httptest.NewRecorder(), postWithKey("shared", &domain.Principal{AccountID: 2, ExternalID: "S002"}))

	if calls != 2 {
		t.Fatalf("expected distinct callers not to share a key, got %d calls", calls)
	}
}

func TestIdempotencyMiddleware_InProgress(t *testing.T) {
	store := &fakeIdempotencyStore{
		checkAndSetFn: func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
			return true, []byte(redisrepo.PendingMarker), nil
		},
	}
	mw := NewIdempotencyMiddleware(store, time.Minute)

	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run while the first request is in flight")
	})).ServeHTTP(rr, postWithKey("busy", nil))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestIdempotencyMiddleware_RetryAfterFailure(t *testing.T) {
	store := newMemoryStore()
	mw := NewIdempotencyMiddleware(store, time.Minute)

	status := http.StatusConflict
	calls := 0
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), postWithKey("retry", nil))
	status = http.StatusCreated
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, postWithKey("retry", nil))

	if calls != 2 || rr.Code != http.StatusCreated {
		t.Fatalf("expected retry to run the handler again, calls=%d status=%d", calls, rr.Code)
	}
}

func TestIdempotencyMiddleware_StoresResponseAfterClientHangUp(t *testing.T) {
	store := newMemoryStore()
	var updateErr error
	detached := &fakeIdempotencyStore{
		checkAndSetFn: store.CheckAndSet,
		updateFn: func(ctx context.Context, key string, response []byte, ttl time.Duration) error {
			updateErr = ctx.Err()
			if _, ok := ctx.Deadline(); !ok {
				t.Errorf("expected the update to carry its own deadline")
			}
			return store.Update(ctx, key, response, ttl)
		},
		releaseFn: store.Release,
	}
	mw := NewIdempotencyMiddleware(detached, time.Minute)

	calls := 0
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"tx-9"}`))
	}))

	// The transfer commits, then the client goes away before the response is stored.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	handler.ServeHTTP(httptest.NewRecorder(), postWithKey("hangup", nil).WithContext(ctx))

	if updateErr != nil {
		t.Fatalf("expected a live context for the update, got %v", updateErr)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, postWithKey("hangup", nil))
	if calls != 1 {
		t.Fatalf("expected the retry to be replayed, handler ran %d times", calls)
	}
	if rr.Code != http.StatusCreated || rr.Header().Get(IdempotencyReplayHeader) != "true" {
		t.Fatalf("expected replayed 201, got %d", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != `{"id":"tx-9"}` {
		t.Fatalf("expected original body, got %s", rr.Body.String())
	}
}

func TestIdempotencyMiddleware_ReleasesClaimWhenHandlerPanics(t *testing.T) {
	store := newMemoryStore()
	mw := NewIdempotencyMiddleware(store, time.Minute)

	panicking := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	func() {
		defer func() {
			if rec := recover(); rec != "boom" {
				t.Fatalf("expected the panic to propagate, got %v", rec)
			}
		}()
		panicking.ServeHTTP(httptest.NewRecorder(), postWithKey("crash", nil))
	}()

	calls := 0
	healthy := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))
	rr := httptest.NewRecorder()
	healthy.ServeHTTP(rr, postWithKey("crash", nil))

	if calls != 1 || rr.Code != http.StatusCreated {
		t.Fatalf("expected the key to be reusable after a panic, calls=%d status=%d", calls, rr.Code)
	}
}

func TestIdempotencyMiddleware_SkipsReadsAndMissingKey(t *testing.T) {
	store := &fakeIdempotencyStore{
		checkAndSetFn: func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
			t.Fatal("store should not be consulted")
			return false, nil, nil
		},
	}
	mw := NewIdempotencyMiddleware(store, time.Minute)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	get := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	get.Header.Set(IdempotencyKeyHeader, "ignored")
	rr := httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rr, get)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/transfers", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through, got %d", rr.Code)
	}
}
