// Package store provides interfaces and types for message storage.
// Implementations are in store/mongo, store/memory, and store/postgres subpackages.
//
// # Architectural Principle: No Distributed Locks
//
// This package is designed to avoid distributed locks entirely. All
// concurrency concerns are handled through:
//
//  1. Atomic Database Operations: Database-native atomic operations like
//     MongoDB's conditional updateOne, or PostgreSQL's INSERT ON CONFLICT.
//     These operations are guaranteed to be atomic by the database engine.
//
//  2. Idempotency via Conditional Writes: Confirmation updates only set
//     timestamps that are not already set. Replaying a confirmation is a
//     no-op at the database level, so no external coordination is needed.
//
//  3. Transactional Fan-Out: Creating a message and its per-recipient
//     state rows uses a single transaction (MongoDB single-document write,
//     PostgreSQL transaction). Either every recipient gets a state row or
//     none do; callers can safely retry the entire send.
//
// Example - Idempotent Delivery Confirmation:
//
//	// WRONG: Distributed lock approach (DO NOT USE)
//	lock.Acquire("confirm:" + msgID + ":" + userID)
//	defer lock.Release()
//	st := store.GetState(msgID, userID)
//	if !st.DeliveredConfirmed { store.ConfirmDelivered(msgID, userID) }
//
//	// CORRECT: Conditional update approach
//	st, err := store.ConfirmDelivered(ctx, msgID, userID)
//	// Replays return the state recorded by the first confirmation.
package store

import (
	"context"
	"time"
)

// Store is the storage interface for the messaging subsystem.
//
// Messages are immutable once created; all mutable per-recipient data
// lives in RecipientState rows created by the send fan-out. All
// operations must be safe for concurrent use. Implementations must use
// database-level atomicity rather than external locking mechanisms.
// See package documentation for details.
type Store interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close(ctx context.Context) error

	// Message operations - immutable message records
	MessageStore

	// State operations - mutable per-recipient state rows
	StateStore
}

// MessageStore provides operations for immutable message records.
type MessageStore interface {
	// CreateMessage creates a message and fans out one RecipientState per
	// recipient in a single atomic operation. Each new state starts
	// unread with normal priority and no confirmations.
	//
	// This operation MUST be atomic - either the message and every state
	// row are created or nothing is. Implementations should use:
	//   - MongoDB: single document embedding the recipient states
	//   - PostgreSQL: one transaction covering message and state inserts
	//
	// On failure no partial state exists and the whole send is retryable.
	// Returns ErrEmptyRecipients if data has no recipients and
	// ErrDuplicateEntry if the recipient list contains the same ID twice.
	CreateMessage(ctx context.Context, data MessageData) (*Message, error)

	// GetMessage retrieves a message by ID.
	// Returns ErrNotFound if the message doesn't exist.
	GetMessage(ctx context.Context, id string) (*Message, error)

	// DeleteMessage permanently removes a message and all its recipient
	// states. Returns ErrNotFound if the message doesn't exist.
	DeleteMessage(ctx context.Context, id string) error
}

// StateStoreReader provides read operations for recipient states.
type StateStoreReader interface {
	// GetState retrieves the state row for one (message, recipient) pair.
	// Returns ErrNotFound if the message doesn't exist OR the recipient
	// has no state row for it; callers cannot tell the two apart.
	GetState(ctx context.Context, messageID, recipientID string) (*RecipientState, error)

	// ListStates returns all recipient states for a message.
	// Returns ErrNotFound if the message doesn't exist.
	ListStates(ctx context.Context, messageID string) ([]*RecipientState, error)

	// ListByRecipient returns every inbox entry for a recipient, ordered
	// by message creation time descending.
	ListByRecipient(ctx context.Context, recipientID string) ([]*InboxEntry, error)

	// CountByRecipient returns total and unread counts for a recipient.
	CountByRecipient(ctx context.Context, recipientID string) (*StateCounts, error)
}

// StateStoreMutator provides mutation operations for recipient states.
// Mutations are specific operations, not general setters. Every mutation
// returns ErrNotFound when no state row exists for the pair, refreshes
// the state's UpdatedAt, and returns the resulting state.
type StateStoreMutator interface {
	// SetRead sets the read flag. Clearing the flag never touches the
	// confirmation fields; a message read once keeps its read receipt.
	SetRead(ctx context.Context, messageID, recipientID string, read bool) (*RecipientState, error)

	// SetPriority sets the priority level.
	// Returns ErrInvalidPriority for unknown levels.
	SetPriority(ctx context.Context, messageID, recipientID string, priority Priority) (*RecipientState, error)

	// ConfirmDelivered records delivery confirmation at the given time.
	// The operation is monotonic: once confirmed, replays keep the
	// original timestamp and return the stored state unchanged.
	ConfirmDelivered(ctx context.Context, messageID, recipientID string, at time.Time) (*RecipientState, error)

	// ConfirmRead records read confirmation at the given time and sets
	// the read flag. Monotonic in the same way as ConfirmDelivered, and
	// additionally implies delivery: an unconfirmed delivery is stamped
	// with the same time.
	ConfirmRead(ctx context.Context, messageID, recipientID string, at time.Time) (*RecipientState, error)
}

// StateStore provides operations for per-recipient message state.
//
// Concurrency: all operations are safe for concurrent use and rely on
// database-level atomicity. No external locking is required or desired.
type StateStore interface {
	StateStoreReader
	StateStoreMutator
}
