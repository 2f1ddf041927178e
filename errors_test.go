package messaging

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rucko24/technovationslp-backend/store"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"not found", ErrNotFound, false},
		{"store not found", store.ErrNotFound, false},
		{"wrapped not found", fmt.Errorf("get state: %w", store.ErrNotFound), false},
		{"invalid message", ErrInvalidMessage, false},
		{"validation error", &ValidationError{Field: "subject", Message: "empty"}, false},
		{"duplicate entry", store.ErrDuplicateEntry, false},
		{"invalid priority", ErrInvalidPriority, false},
		{"transaction failed", store.ErrTransactionFailed, true},
		{"context deadline", context.DeadlineExceeded, true},
		{"unknown error", errors.New("connection reset"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryableError(tt.err); got != tt.retryable {
				t.Errorf("IsRetryableError(%v) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}

func TestSentinelErrorsWrapStoreErrors(t *testing.T) {
	tests := []struct {
		name      string
		messaging error
		store     error
	}{
		{"not found", ErrNotFound, store.ErrNotFound},
		{"empty recipients", ErrEmptyRecipients, store.ErrEmptyRecipients},
		{"empty subject", ErrEmptySubject, store.ErrEmptySubject},
		{"not connected", ErrNotConnected, store.ErrNotConnected},
		{"already connected", ErrAlreadyConnected, store.ErrAlreadyConnected},
		{"invalid id", ErrInvalidID, store.ErrInvalidID},
		{"duplicate entry", ErrDuplicateEntry, store.ErrDuplicateEntry},
		{"invalid priority", ErrInvalidPriority, store.ErrInvalidPriority},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.messaging, tt.store) {
				t.Errorf("expected %v to wrap %v", tt.messaging, tt.store)
			}
			// Store errors surfaced through the mailbox layer match both
			// the messaging sentinel and the store sentinel.
			surfaced := storeErr("op", fmt.Errorf("backend: %w", tt.store))
			if !errors.Is(surfaced, tt.messaging) {
				t.Errorf("expected surfaced error to match messaging sentinel, got %v", surfaced)
			}
			if !errors.Is(surfaced, tt.store) {
				t.Errorf("expected surfaced error to match store sentinel, got %v", surfaced)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := error(&ValidationError{Field: "subject", Message: "must not be empty"})

	if !errors.Is(err, ErrInvalidMessage) {
		t.Error("ValidationError should unwrap to ErrInvalidMessage")
	}

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatal("expected errors.As to match ValidationError")
	}
	if ve.Field != "subject" {
		t.Errorf("expected field 'subject', got %q", ve.Field)
	}
}
