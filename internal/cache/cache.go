// Package cache provides a Redis-backed response cache for read
// endpoints, invalidated by the store's committed-change feed.
//
// Cache keys embed a per-collection version counter. Serving a cached
// response only requires a version read plus a key read, and
// invalidation is a single INCR on the collection's version, which
// orphans every key minted under the old version and lets TTL reclaim
// them.
package cache

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/johnamet/faithvibe/internal/store"
)

const keyPrefix = "faithvibe"

// Cache serves and stores HTTP responses for GET endpoints.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

// New creates a Cache. ttl bounds how long an orphaned entry can live.
func New(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *Cache {
	return &Cache{rdb: rdb, ttl: ttl, log: log}
}

// collectionFor maps an API path to the collection whose version stamps
// its cache keys. Paths outside the cacheable surface return "".
func collectionFor(path string) store.Collection {
	rest, ok := strings.CutPrefix(path, "/api/")
	if !ok {
		return ""
	}
	switch strings.SplitN(rest, "/", 2)[0] {
	case "events":
		return store.Events
	case "products":
		return store.Products
	case "orders":
		return store.Orders
	case "prayer-requests":
		return store.PrayerRequests
	case "devotionals":
		return store.Devotionals
	default:
		return ""
	}
}

func (c *Cache) versionKey(col store.Collection) string {
	return fmt.Sprintf("%s:ver:%s", keyPrefix, col)
}

func (c *Cache) respKey(col store.Collection, version, uri string) string {
	return fmt.Sprintf("%s:resp:%s:%s:%s", keyPrefix, col, version, uri)
}

// Handler wraps next with the response cache. Only anonymous GET
// requests on the cacheable surface are served from cache; identified
// requests bypass it since their responses may be scoped to the caller.
func (c *Cache) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		col := collectionFor(r.URL.Path)
		if r.Method != http.MethodGet || col == "" || r.Header.Get("Authorization") != "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()

		version, err := c.rdb.Get(ctx, c.versionKey(col)).Result()
		if err != nil && err != redis.Nil {
			c.log.WarnContext(ctx, "cache unavailable, serving direct", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		key := c.respKey(col, version, r.URL.RequestURI())

		if body, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			_, _ = w.Write(body)
			return
		}

		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if rec.status == http.StatusOK && rec.buf.Len() > 0 {
			if err := c.rdb.Set(ctx, key, rec.buf.Bytes(), c.ttl).Err(); err != nil {
				c.log.WarnContext(ctx, "cache store failed", "key", key, "error", err)
			}
		}
	})
}

// recorder tees the response body so a 200 can be stored after it has
// been written to the client.
type recorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(p []byte) (int, error) {
	if r.status == http.StatusOK {
		r.buf.Write(p)
	}
	return r.ResponseWriter.Write(p)
}

// Invalidate bumps the collection's version, orphaning its cached
// responses.
func (c *Cache) Invalidate(ctx context.Context, col store.Collection) error {
	return c.rdb.Incr(ctx, c.versionKey(col)).Err()
}

// RunInvalidator consumes the store's committed-change feed and bumps
// collection versions until ctx is cancelled.
func (c *Cache) RunInvalidator(ctx context.Context, st store.Store) {
	changes, cancel := st.Watch(ctx)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			if err := c.Invalidate(ctx, change.Collection); err != nil {
				c.log.WarnContext(ctx, "cache invalidation failed",
					"collection", string(change.Collection), "error", err)
			}
		}
	}
}
