// Package memory provides an in-memory deliverable store for testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rucko24/technovationslp-backend/deliverable"
	"github.com/rucko24/technovationslp-backend/store"
)

// Compile-time interface check.
var _ deliverable.Store = (*Store)(nil)

// Store is an in-memory deliverable store.
// Safe for concurrent use. Data is lost when the process exits.
type Store struct {
	mu          sync.RWMutex
	byID        map[string]*deliverable.Deliverable
	connected   int32
	nowOverride func() time.Time // test hook
}

// New creates a new in-memory deliverable store.
func New() *Store {
	return &Store{
		byID: make(map[string]*deliverable.Deliverable),
	}
}

// Connect marks the store as connected.
func (s *Store) Connect(_ context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}
	return nil
}

// Close marks the store as disconnected.
func (s *Store) Close(_ context.Context) error {
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

func (s *Store) checkConnected() error {
	if atomic.LoadInt32(&s.connected) != 1 {
		return store.ErrNotConnected
	}
	return nil
}

func (s *Store) now() time.Time {
	if s.nowOverride != nil {
		return s.nowOverride()
	}
	return time.Now().UTC()
}

// Create persists a new deliverable.
func (s *Store) Create(_ context.Context, data deliverable.Data) (*deliverable.Deliverable, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	now := s.now()
	d := &deliverable.Deliverable{
		ID:           uuid.NewString(),
		BatchID:      data.BatchID,
		Title:        data.Title,
		Description:  data.Description,
		DueDate:      data.DueDate,
		ResourceRefs: append([]string(nil), data.ResourceRefs...),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.mu.Lock()
	s.byID[d.ID] = d
	s.mu.Unlock()

	return clone(d), nil
}

// Get retrieves a deliverable by ID.
func (s *Store) Get(_ context.Context, id string) (*deliverable.Deliverable, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	d, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(d), nil
}

// Update replaces the mutable fields of a deliverable.
func (s *Store) Update(_ context.Context, id string, data deliverable.Data) (*deliverable.Deliverable, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	d.BatchID = data.BatchID
	d.Title = data.Title
	d.Description = data.Description
	d.DueDate = data.DueDate
	d.ResourceRefs = append([]string(nil), data.ResourceRefs...)
	d.UpdatedAt = s.now()

	return clone(d), nil
}

// ListByBatch returns all deliverables for a batch, newest first.
func (s *Store) ListByBatch(_ context.Context, batchID string) ([]*deliverable.Deliverable, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var result []*deliverable.Deliverable
	for _, d := range s.byID {
		if d.BatchID == batchID {
			result = append(result, clone(d))
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Delete removes a deliverable.
func (s *Store) Delete(_ context.Context, id string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func clone(d *deliverable.Deliverable) *deliverable.Deliverable {
	c := *d
	c.ResourceRefs = append([]string(nil), d.ResourceRefs...)
	if d.DueDate != nil {
		due := *d.DueDate
		c.DueDate = &due
	}
	return &c
}
