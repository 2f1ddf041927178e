package messaging

import (
	"errors"
	"fmt"

	"github.com/rucko24/technovationslp-backend/store"
)

// Sentinel errors for the messaging package.
// Use errors.Is() to check for these errors.
//
// These errors wrap corresponding store-level errors where applicable,
// so errors.Is(err, messaging.ErrNotFound) will match both messaging-level
// and store-level "not found" errors.
var (
	// ErrNotFound is returned when a message cannot be found OR the caller
	// is not a recipient of it. The two cases are deliberately
	// indistinguishable so callers cannot probe for message existence.
	// Wraps store.ErrNotFound for consistent error checking.
	ErrNotFound = fmt.Errorf("messaging: %w", store.ErrNotFound)

	// ErrInvalidMessage is returned for message validation failures.
	ErrInvalidMessage = errors.New("messaging: invalid message")

	// ErrEmptyRecipients is returned when no recipients are provided.
	// Wraps store.ErrEmptyRecipients for consistent error checking.
	ErrEmptyRecipients = fmt.Errorf("messaging: %w", store.ErrEmptyRecipients)

	// ErrEmptySubject is returned when subject is empty.
	// Wraps store.ErrEmptySubject for consistent error checking.
	ErrEmptySubject = fmt.Errorf("messaging: %w", store.ErrEmptySubject)

	// ErrStoreRequired is returned when no store is configured.
	ErrStoreRequired = errors.New("messaging: store is required")

	// ErrNotConnected is returned when operations are attempted before Connect().
	// Wraps store.ErrNotConnected for consistent error checking.
	ErrNotConnected = fmt.Errorf("messaging: %w", store.ErrNotConnected)

	// ErrAlreadyConnected is returned when Connect() is called twice.
	// Wraps store.ErrAlreadyConnected for consistent error checking.
	ErrAlreadyConnected = fmt.Errorf("messaging: %w", store.ErrAlreadyConnected)

	// ErrInvalidID is returned when an invalid ID is provided.
	// Wraps store.ErrInvalidID for consistent error checking.
	ErrInvalidID = fmt.Errorf("messaging: %w", store.ErrInvalidID)

	// ErrDuplicateEntry is returned when a duplicate entry is detected.
	// Wraps store.ErrDuplicateEntry for consistent error checking.
	ErrDuplicateEntry = fmt.Errorf("messaging: %w", store.ErrDuplicateEntry)

	// ErrInvalidPriority is returned when an unknown priority level is provided.
	// Wraps store.ErrInvalidPriority for consistent error checking.
	ErrInvalidPriority = fmt.Errorf("messaging: %w", store.ErrInvalidPriority)

	// ErrSubjectTooLong is returned when subject exceeds maximum length.
	ErrSubjectTooLong = errors.New("messaging: subject too long")

	// ErrBodyTooLarge is returned when body exceeds maximum size.
	ErrBodyTooLarge = errors.New("messaging: body too large")

	// ErrTooManyRecipients is returned when recipient count exceeds the limit.
	ErrTooManyRecipients = errors.New("messaging: too many recipients")

	// ErrInvalidRecipient is returned when a recipient ID is invalid.
	ErrInvalidRecipient = errors.New("messaging: invalid recipient")

	// ErrTooManyAttachments is returned when attachment count exceeds the limit.
	ErrTooManyAttachments = errors.New("messaging: too many attachments")

	// ErrInvalidUserID is returned when a user ID contains invalid characters.
	ErrInvalidUserID = errors.New("messaging: invalid user id")
)

// storeErr translates known store sentinels into their messaging
// counterparts so callers can match package-level errors with
// errors.Is, and wraps everything else with the operation name.
// The messaging sentinels wrap the store ones, so matching against
// store errors keeps working either way.
func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, store.ErrInvalidID):
		return fmt.Errorf("%s: %w", op, ErrInvalidID)
	case errors.Is(err, store.ErrDuplicateEntry):
		return fmt.Errorf("%s: %w", op, ErrDuplicateEntry)
	case errors.Is(err, store.ErrInvalidPriority):
		return fmt.Errorf("%s: %w", op, ErrInvalidPriority)
	case errors.Is(err, store.ErrEmptyRecipients):
		return fmt.Errorf("%s: %w", op, ErrEmptyRecipients)
	case errors.Is(err, store.ErrEmptySubject):
		return fmt.Errorf("%s: %w", op, ErrEmptySubject)
	case errors.Is(err, store.ErrNotConnected):
		return fmt.Errorf("%s: %w", op, ErrNotConnected)
	case errors.Is(err, store.ErrAlreadyConnected):
		return fmt.Errorf("%s: %w", op, ErrAlreadyConnected)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError determines if an error is retryable.
// Returns true for temporary/transient errors, false for permanent errors.
// Handles both messaging-level and store-level errors.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Permanent errors that should not be retried (messaging-level).
	permanentErrors := []error{
		ErrNotFound,
		ErrInvalidMessage,
		ErrEmptyRecipients,
		ErrEmptySubject,
		ErrInvalidID,
		ErrDuplicateEntry,
		ErrInvalidPriority,
		ErrSubjectTooLong,
		ErrBodyTooLarge,
		ErrTooManyRecipients,
		ErrInvalidRecipient,
		ErrTooManyAttachments,
		ErrInvalidUserID,
	}
	for _, permErr := range permanentErrors {
		if errors.Is(err, permErr) {
			return false
		}
	}

	// Also check store-level permanent errors (in case they bubble up unwrapped).
	storePermanentErrors := []error{
		store.ErrNotFound,
		store.ErrInvalidID,
		store.ErrDuplicateEntry,
		store.ErrEmptyRecipients,
		store.ErrEmptySubject,
		store.ErrInvalidPriority,
	}
	for _, permErr := range storePermanentErrors {
		if errors.Is(err, permErr) {
			return false
		}
	}

	// For everything else (connection loss, failed transactions, timeouts)
	// default to retryable.
	return true
}

// ValidationError provides details about a validation failure.
type ValidationError struct {
	Field   string // The field that failed validation
	Message string // Human-readable error message
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("messaging: validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidMessage
}

// EventPublishError is returned when event publishing fails but the operation
// succeeded. The message was sent/read/confirmed, but the event notification
// failed. Check the MessageID field to identify which message this applies to.
type EventPublishError struct {
	Event     string // The event name (e.g., "MessageSent", "MessageRead")
	MessageID string // The message ID the event was for
	Err       error  // The underlying publish error
}

func (e *EventPublishError) Error() string {
	return fmt.Sprintf("messaging: event %s publish failed for message %s: %v", e.Event, e.MessageID, e.Err)
}

func (e *EventPublishError) Unwrap() error {
	return e.Err
}

// IsEventPublishError checks if the error is an event publish error and returns details.
// This is useful when eventErrorsFatal=true but you still want to know the operation succeeded.
func IsEventPublishError(err error) (*EventPublishError, bool) {
	var epe *EventPublishError
	if errors.As(err, &epe) {
		return epe, true
	}
	return nil, false
}
