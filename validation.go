package messaging

import (
	"fmt"
	"unicode/utf8"
)

// MessageLimits holds configurable size limits for outgoing messages.
type MessageLimits struct {
	MaxSubjectLength   int
	MaxBodySize        int
	MaxRecipientCount  int
	MaxAttachmentCount int
}

// isValidUserID checks if a user ID is valid.
// Valid user IDs are non-empty and contain only safe characters.
func isValidUserID(userID string) bool {
	if userID == "" {
		return false
	}
	// Allow alphanumeric, hyphen, underscore, period, at-sign
	// Disallow: *, :, /, \, spaces, and control characters
	for _, c := range userID {
		if c == '*' || c == ':' || c == '/' || c == '\\' ||
			c == ' ' || c == '\t' || c == '\n' || c == '\r' ||
			c < 32 || c == 127 {
			return false
		}
	}
	return true
}

// ValidateSendRequest validates an outgoing message against the limits.
// Recipients must already be deduplicated.
func ValidateSendRequest(req SendRequest, limits MessageLimits) error {
	if err := ValidateSubject(req.Subject, limits); err != nil {
		return err
	}
	if err := ValidateBody(req.Body, limits); err != nil {
		return err
	}
	if err := ValidateRecipients(req.RecipientIDs, limits); err != nil {
		return err
	}
	if limits.MaxAttachmentCount > 0 && len(req.Attachments) > limits.MaxAttachmentCount {
		return fmt.Errorf("%w: %d attachments exceeds limit of %d",
			ErrTooManyAttachments, len(req.Attachments), limits.MaxAttachmentCount)
	}
	return nil
}

// ValidateSubject validates a message subject.
func ValidateSubject(subject string, limits MessageLimits) error {
	if subject == "" {
		return ErrEmptySubject
	}
	if limits.MaxSubjectLength > 0 && utf8.RuneCountInString(subject) > limits.MaxSubjectLength {
		return fmt.Errorf("%w: %d characters exceeds limit of %d",
			ErrSubjectTooLong, utf8.RuneCountInString(subject), limits.MaxSubjectLength)
	}
	return nil
}

// ValidateBody validates a message body.
func ValidateBody(body string, limits MessageLimits) error {
	if limits.MaxBodySize > 0 && len(body) > limits.MaxBodySize {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d",
			ErrBodyTooLarge, len(body), limits.MaxBodySize)
	}
	return nil
}

// ValidateRecipients validates the recipient list.
func ValidateRecipients(recipientIDs []string, limits MessageLimits) error {
	if len(recipientIDs) == 0 {
		return ErrEmptyRecipients
	}
	if limits.MaxRecipientCount > 0 && len(recipientIDs) > limits.MaxRecipientCount {
		return fmt.Errorf("%w: %d recipients exceeds limit of %d",
			ErrTooManyRecipients, len(recipientIDs), limits.MaxRecipientCount)
	}
	for _, id := range recipientIDs {
		if !isValidUserID(id) {
			return fmt.Errorf("%w: %q", ErrInvalidRecipient, id)
		}
	}
	return nil
}

// deduplicateRecipients returns a list of unique recipient IDs,
// preserving first-seen order.
func deduplicateRecipients(recipientIDs []string) []string {
	seen := make(map[string]bool, len(recipientIDs))
	unique := make([]string, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	return unique
}
