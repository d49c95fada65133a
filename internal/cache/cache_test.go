package cache

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnamet/faithvibe/internal/model"
	"github.com/johnamet/faithvibe/internal/store"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(rdb, time.Minute, slog.New(slog.DiscardHandler))
}

func countingHandler(hits *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[{"id":"e1"}]`))
	})
}

func TestCollectionFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, store.Events, collectionFor("/api/events"))
	assert.Equal(t, store.Events, collectionFor("/api/events/abc"))
	assert.Equal(t, store.PrayerRequests, collectionFor("/api/prayer-requests"))
	assert.Equal(t, store.Collection(""), collectionFor("/healthz"))
	assert.Equal(t, store.Collection(""), collectionFor("/api/me"))
}

func TestHandler_ServesFromCache(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	var hits int
	h := c.Handler(countingHandler(&hits))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[{"id":"e1"}]`, rec.Body.String())
	}
	assert.Equal(t, 1, hits, "only the first request reaches the handler")
}

func TestHandler_InvalidateForcesMiss(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	var hits int
	h := c.Handler(countingHandler(&hits))
	ctx := context.Background()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	require.Equal(t, 1, hits)

	require.NoError(t, c.Invalidate(ctx, store.Events))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	assert.Equal(t, 2, hits, "invalidation orphans the cached response")

	// Other collections keep their entries.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	assert.Equal(t, 3, hits)
}

func TestHandler_BypassesNonCacheable(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	var hits int
	h := c.Handler(countingHandler(&hits))

	// POSTs are never cached.
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/events", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/events", nil))

	// Identified requests bypass the cache.
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	h.ServeHTTP(httptest.NewRecorder(), req)
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 4, hits)
}

func TestHandler_DoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	var hits int
	h := c.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/events/missing", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/events/missing", nil))
	assert.Equal(t, 2, hits)
}

func TestRunInvalidator(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	st := store.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		c.RunInvalidator(ctx, st)
		close(done)
	}()

	var hits int
	h := c.Handler(countingHandler(&hits))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/events", nil))
	require.Equal(t, 1, hits)

	// A committed change bumps the events version.
	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertEvent(ctx, &model.Event{ID: "e-test", Capacity: 5}))
	require.NoError(t, tx.Commit(ctx))

	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
		return hits > 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("invalidator did not stop")
	}
}
