// Package cached provides a TTL-caching wrapper for resource resolvers.
package cached

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rucko24/technovationslp-backend/resource"
)

// Resolver wraps another resolver and caches Stat results in memory.
// Object metadata changes rarely, so a short TTL removes most backend
// round-trips when the same attachments are listed repeatedly.
type Resolver struct {
	backend resource.Resolver
	ttl     time.Duration
	logger  *slog.Logger

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	info    *resource.Info
	expires time.Time
}

// Ensure Resolver implements resource.Resolver.
var _ resource.Resolver = (*Resolver)(nil)

// New creates a caching resolver wrapping the given backend.
func New(backend resource.Resolver, opts ...Option) *Resolver {
	o := &options{
		ttl:    5 * time.Minute,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return &Resolver{
		backend: backend,
		ttl:     o.ttl,
		logger:  o.logger,
		entries: make(map[string]cacheEntry),
	}
}

// Stat returns cached metadata when fresh, falling back to the backend.
func (r *Resolver) Stat(ctx context.Context, ref string) (*resource.Info, error) {
	r.mu.RLock()
	e, ok := r.entries[ref]
	r.mu.RUnlock()
	if ok && time.Now().Before(e.expires) {
		r.logger.Debug("resource cache hit", "ref", ref)
		return e.info, nil
	}

	info, err := r.backend.Stat(ctx, ref)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.entries[ref] = cacheEntry{info: info, expires: time.Now().Add(r.ttl)}
	r.mu.Unlock()
	return info, nil
}

// Delete removes the object from the backend and drops the cache entry.
func (r *Resolver) Delete(ctx context.Context, ref string) error {
	r.mu.Lock()
	delete(r.entries, ref)
	r.mu.Unlock()
	return r.backend.Delete(ctx, ref)
}
