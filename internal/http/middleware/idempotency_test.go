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

type memIdemStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemIdemStore() *memIdemStore {
	return &memIdemStore{values: make(map[string]string)}
}

func (s *memIdemStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key], nil
}

func (s *memIdemStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// countedHandler writes a distinct body per invocation so a replayed response
// is distinguishable from a re-executed one.
func countedHandler(status int, calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(status)
		w.Write([]byte(`{"call":` + strconv.Itoa(*calls) + `}`))
	})
}

func TestIdempotencyReplaysCachedResponse(t *testing.T) {
	store := newMemIdemStore()
	var calls int
	handler := Idempotency(store)(countedHandler(http.StatusOK, &calls))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Idempotency-Key", "abc-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Body.String() != `{"call":1}` {
			t.Fatalf("request %d body = %s, want the first response", i+1, rec.Body)
		}
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
}

func TestIdempotencySkipsWithoutKey(t *testing.T) {
	store := newMemIdemStore()
	var calls int
	handler := Idempotency(store)(countedHandler(http.StatusOK, &calls))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	}
	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2 without a key", calls)
	}
}

func TestIdempotencySkipsNonPost(t *testing.T) {
	store := newMemIdemStore()
	var calls int
	handler := Idempotency(store)(countedHandler(http.StatusOK, &calls))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Idempotency-Key", "abc-123")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2 for GET", calls)
	}
}

// Failures are never cached; the caller may retry the same key.
func TestIdempotencyDoesNotCacheErrors(t *testing.T) {
	store := newMemIdemStore()
	var calls int
	handler := Idempotency(store)(countedHandler(http.StatusConflict, &calls))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Idempotency-Key", "abc-123")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2 when responses fail", calls)
	}
}

func TestIdempotencyKeysAreIndependent(t *testing.T) {
	store := newMemIdemStore()
	var calls int
	handler := Idempotency(store)(countedHandler(http.StatusOK, &calls))

	for _, key := range []string{"key-a", "key-b"} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Idempotency-Key", key)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2 for distinct keys", calls)
	}
}
