// Package cache implements the keyed response cache shared by the API's read
// paths and the Go client. Entries are grouped by resource key so that a
// mutation can invalidate every cached view of a resource by prefix.
//
// Every resource prefix carries a generation counter kept in the Store.
// Entries are written under the generation that was current when their load
// started, and InvalidatePrefix bumps it, so a load that raced a mutation can
// only land under a generation no reader will ask for again. Because the
// counter lives in the Store, this holds across processes sharing a Redis.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// ErrMiss is returned by Store.Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// ErrSuperseded is returned by Query when a newer query for the same resource
// with different parameters started while this one was in flight. The stale
// response is dropped.
var ErrSuperseded = errors.New("superseded by a newer query")

// Store is the backing key/value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
	// Generation returns the invalidation counter of prefix, zero if it was
	// never bumped.
	Generation(ctx context.Context, prefix string) (uint64, error)
	// Bump increments the invalidation counter of prefix.
	Bump(ctx context.Context, prefix string) error
}

// Cache is a read-through cache over a Store.
// Store failures never fail a read: they are logged and the loader's result is
// returned as is.
type Cache struct {
	store Store
	ttl   time.Duration
	log   *slog.Logger

	mu     sync.Mutex
	latest map[string]string // resource -> params of the newest Query
}

// New constructs a Cache. A nil logger discards log output.
func New(store Store, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{
		store:  store,
		ttl:    ttl,
		log:    logger,
		latest: make(map[string]string),
	}
}

// Loader produces the encoded value for a cache miss.
type Loader func(ctx context.Context) ([]byte, error)

// Fetch returns the cached value of resource+params, calling load on a miss
// and storing its result. A load that overlaps an InvalidatePrefix of the
// resource is returned to the caller but never served to later readers.
func (c *Cache) Fetch(ctx context.Context, resource, params string, load Loader) ([]byte, error) {
	key, ok := c.lookup(ctx, resource, params)
	if ok {
		if v, err := c.store.Get(ctx, key); err == nil {
			return v, nil
		} else if !errors.Is(err, ErrMiss) {
			c.log.WarnContext(ctx, "cache get failed", "key", key, "error", err)
		}
	}

	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		c.put(ctx, key, v)
	}
	return v, nil
}

// Query is Fetch with supersession: if another Query for the same resource
// but different params starts before this one's load returns, this one fails
// with ErrSuperseded and its response is discarded.
func (c *Cache) Query(ctx context.Context, resource, params string, load Loader) ([]byte, error) {
	c.mu.Lock()
	c.latest[resource] = params
	c.mu.Unlock()

	key, ok := c.lookup(ctx, resource, params)
	if ok {
		if v, err := c.store.Get(ctx, key); err == nil {
			return v, nil
		}
	}

	v, err := load(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	current := c.latest[resource]
	c.mu.Unlock()

	if current != params {
		return nil, ErrSuperseded
	}
	if ok {
		c.put(ctx, key, v)
	}
	return v, nil
}

// InvalidatePrefix drops every entry of the resource prefix (see Prefix) and
// fences loads already in flight for it.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) error {
	if err := c.store.Bump(ctx, prefix); err != nil {
		return err
	}
	// The bump alone hides old entries; deleting them only reclaims space.
	if err := c.store.DeletePrefix(ctx, prefix); err != nil {
		return err
	}
	return nil
}

// lookup resolves the store key of resource+params under the current
// generation. ok is false when the generation could not be read, in which
// case the caller must neither read nor write the store.
func (c *Cache) lookup(ctx context.Context, resource, params string) (string, bool) {
	prefix := Prefix(resource)
	gen, err := c.store.Generation(ctx, prefix)
	if err != nil {
		c.log.WarnContext(ctx, "cache generation read failed", "prefix", prefix, "error", err)
		return "", false
	}
	return prefix + "g" + strconv.FormatUint(gen, 10) + ":" + params, true
}

func (c *Cache) put(ctx context.Context, key string, v []byte) {
	if err := c.store.Set(ctx, key, v, c.ttl); err != nil {
		c.log.WarnContext(ctx, "cache set failed", "key", key, "error", err)
	}
}
