package deliverable

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rucko24/technovationslp-backend/resource"
)

// Service provides deliverable management on top of a Store, with
// optional resource cleanup when deliverables are deleted.
type Service struct {
	store    Store
	resolver resource.Resolver
	logger   *slog.Logger
}

// Option configures a deliverable service.
type Option func(*Service)

// WithResourceResolver sets the resolver used to remove supporting
// files when a deliverable is deleted. Without one, deletes remove only
// the record.
func WithResourceResolver(r resource.Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a deliverable service backed by the given store.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("deliverable: store is required")
	}
	s := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Connect establishes the storage connection.
func (s *Service) Connect(ctx context.Context) error {
	return s.store.Connect(ctx)
}

// Close closes the storage connection.
func (s *Service) Close(ctx context.Context) error {
	return s.store.Close(ctx)
}

// Create persists a new deliverable.
func (s *Service) Create(ctx context.Context, data Data) (*Deliverable, error) {
	if err := validateData(data); err != nil {
		return nil, err
	}
	d, err := s.store.Create(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("create deliverable: %w", err)
	}
	return d, nil
}

// Get retrieves a deliverable by ID.
func (s *Service) Get(ctx context.Context, id string) (*Deliverable, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get deliverable: %w", err)
	}
	return d, nil
}

// Update replaces the mutable fields of a deliverable.
func (s *Service) Update(ctx context.Context, id string, data Data) (*Deliverable, error) {
	if err := validateData(data); err != nil {
		return nil, err
	}
	d, err := s.store.Update(ctx, id, data)
	if err != nil {
		return nil, fmt.Errorf("update deliverable: %w", err)
	}
	return d, nil
}

// ListByBatch returns all deliverables for a batch, newest first.
func (s *Service) ListByBatch(ctx context.Context, batchID string) ([]*Deliverable, error) {
	if batchID == "" {
		return nil, errors.New("deliverable: batch id is required")
	}
	list, err := s.store.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("list deliverables: %w", err)
	}
	return list, nil
}

// Delete removes a deliverable and then its supporting files.
//
// The record is removed first so a resolver outage never blocks the
// delete. File removal is best effort: failures are logged and the
// delete still succeeds, leaving at worst an orphaned object.
func (s *Service) Delete(ctx context.Context, id string) error {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get deliverable: %w", err)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete deliverable: %w", err)
	}

	if s.resolver == nil {
		return nil
	}
	for _, ref := range d.ResourceRefs {
		if err := s.resolver.Delete(ctx, ref); err != nil && !errors.Is(err, resource.ErrNotFound) {
			s.logger.Warn("failed to delete deliverable resource",
				"deliverable_id", id, "ref", ref, "error", err)
		}
	}
	return nil
}

func validateData(data Data) error {
	if data.BatchID == "" {
		return errors.New("deliverable: batch id is required")
	}
	if data.Title == "" {
		return errors.New("deliverable: title is required")
	}
	return nil
}
