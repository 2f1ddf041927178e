package cached

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rucko24/technovationslp-backend/resource"
)

// stubResolver counts backend calls and serves canned metadata.
type stubResolver struct {
	mu      sync.Mutex
	stats   int
	deletes int
	objects map[string]*resource.Info
}

func newStub(refs ...string) *stubResolver {
	s := &stubResolver{objects: make(map[string]*resource.Info)}
	for _, ref := range refs {
		s.objects[ref] = &resource.Info{Ref: ref, ContentType: "application/pdf", Size: 1024}
	}
	return s
}

func (s *stubResolver) Stat(_ context.Context, ref string) (*resource.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats++
	info, ok := s.objects[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", resource.ErrNotFound, ref)
	}
	return info, nil
}

func (s *stubResolver) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	if _, ok := s.objects[ref]; !ok {
		return fmt.Errorf("%w: %s", resource.ErrNotFound, ref)
	}
	delete(s.objects, ref)
	return nil
}

func (s *stubResolver) statCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func TestStatCaching(t *testing.T) {
	ctx := context.Background()
	backend := newStub("s3://files/guide.pdf")
	r := New(backend, WithTTL(time.Minute))

	info, err := r.Stat(ctx, "s3://files/guide.pdf")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size != 1024 {
		t.Errorf("unexpected info: %+v", info)
	}

	// Second lookup is served from cache.
	if _, err := r.Stat(ctx, "s3://files/guide.pdf"); err != nil {
		t.Fatalf("stat: %v", err)
	}
	if got := backend.statCalls(); got != 1 {
		t.Errorf("expected 1 backend call, got %d", got)
	}
}

func TestStatExpiry(t *testing.T) {
	ctx := context.Background()
	backend := newStub("s3://files/guide.pdf")
	r := New(backend, WithTTL(5*time.Millisecond))

	if _, err := r.Stat(ctx, "s3://files/guide.pdf"); err != nil {
		t.Fatalf("stat: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := r.Stat(ctx, "s3://files/guide.pdf"); err != nil {
		t.Fatalf("stat: %v", err)
	}
	if got := backend.statCalls(); got != 2 {
		t.Errorf("expected 2 backend calls after expiry, got %d", got)
	}
}

func TestStatErrorNotCached(t *testing.T) {
	ctx := context.Background()
	backend := newStub()
	r := New(backend, WithTTL(time.Minute))

	if _, err := r.Stat(ctx, "s3://files/missing.pdf"); !errors.Is(err, resource.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := r.Stat(ctx, "s3://files/missing.pdf"); !errors.Is(err, resource.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// Misses always hit the backend; only successes are cached.
	if got := backend.statCalls(); got != 2 {
		t.Errorf("expected 2 backend calls, got %d", got)
	}
}

func TestDeleteInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	backend := newStub("s3://files/guide.pdf")
	r := New(backend, WithTTL(time.Minute))

	if _, err := r.Stat(ctx, "s3://files/guide.pdf"); err != nil {
		t.Fatalf("stat: %v", err)
	}
	if err := r.Delete(ctx, "s3://files/guide.pdf"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// The stale entry is gone, so the miss reaches the backend.
	if _, err := r.Stat(ctx, "s3://files/guide.pdf"); !errors.Is(err, resource.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if backend.deletes != 1 {
		t.Errorf("expected 1 backend delete, got %d", backend.deletes)
	}
}

func TestDeletePropagatesBackendError(t *testing.T) {
	backend := newStub()
	r := New(backend)

	err := r.Delete(context.Background(), "s3://files/missing.pdf")
	if !errors.Is(err, resource.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
