// Package deliverable manages cohort deliverables: assignments handed
// out to a batch, each carrying descriptive content and opaque resource
// references for supporting files.
//
// Storage backends live in deliverable/memory and deliverable/postgres.
// Resource cleanup on delete is best effort; the row is removed first
// and resolver failures are logged, never surfaced.
package deliverable

import (
	"context"
	"time"
)

// Deliverable is an assignment handed out to a cohort batch.
type Deliverable struct {
	ID          string     `json:"id" db:"id"`
	BatchID     string     `json:"batch_id" db:"batch_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	DueDate     *time.Time `json:"due_date,omitempty" db:"due_date"`
	// ResourceRefs holds opaque references to supporting files.
	ResourceRefs []string  `json:"resource_refs,omitempty" db:"resource_refs"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Data contains the mutable fields of a deliverable, used for both
// creation and update.
type Data struct {
	BatchID      string
	Title        string
	Description  string
	DueDate      *time.Time
	ResourceRefs []string
}

// Store is the storage interface for deliverables.
// Implementations reuse the store package's sentinel errors
// (store.ErrNotFound, store.ErrNotConnected).
type Store interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close(ctx context.Context) error

	// Create persists a new deliverable and assigns its ID and timestamps.
	Create(ctx context.Context, data Data) (*Deliverable, error)

	// Get retrieves a deliverable by ID.
	// Returns store.ErrNotFound when absent.
	Get(ctx context.Context, id string) (*Deliverable, error)

	// Update replaces the mutable fields of a deliverable and refreshes
	// its UpdatedAt. Returns store.ErrNotFound when absent.
	Update(ctx context.Context, id string, data Data) (*Deliverable, error)

	// ListByBatch returns all deliverables for a batch, ordered by
	// creation time descending.
	ListByBatch(ctx context.Context, batchID string) ([]*Deliverable, error)

	// Delete removes a deliverable. Returns store.ErrNotFound when absent.
	Delete(ctx context.Context, id string) error
}
