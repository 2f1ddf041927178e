package store

import "errors"

// Sentinel errors for the store package.
var (
	// ErrNotFound is returned when a message or recipient state is absent.
	// Callers receive the same error whether the message does not exist or
	// the caller is simply not a recipient of it, so non-recipients cannot
	// probe for message existence.
	ErrNotFound = errors.New("store: not found")

	// ErrInvalidID is returned when an invalid ID is provided.
	ErrInvalidID = errors.New("store: invalid id")

	// ErrDuplicateEntry is returned when a fan-out would create a second
	// state row for the same (message, recipient) pair.
	ErrDuplicateEntry = errors.New("store: duplicate entry")

	// ErrNotConnected is returned when operations are attempted before Connect().
	ErrNotConnected = errors.New("store: not connected")

	// ErrAlreadyConnected is returned when Connect() is called twice.
	ErrAlreadyConnected = errors.New("store: already connected")

	// ErrEmptyRecipients is returned when no recipients are provided.
	ErrEmptyRecipients = errors.New("store: empty recipients")

	// ErrEmptySubject is returned when subject is empty.
	ErrEmptySubject = errors.New("store: empty subject")

	// ErrInvalidPriority is returned when an unknown priority level is provided.
	ErrInvalidPriority = errors.New("store: invalid priority")

	// ErrTransactionFailed is returned when a database transaction fails.
	// This indicates the atomic fan-out could not complete and no state rows
	// were written; the whole send is safe to retry.
	ErrTransactionFailed = errors.New("store: transaction failed")
)

// Error checking helpers.

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidID(err error) bool {
	return errors.Is(err, ErrInvalidID)
}

func IsDuplicateEntry(err error) bool {
	return errors.Is(err, ErrDuplicateEntry)
}

func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}
