package store

import (
	"time"
)

// Priority is the per-recipient priority level of a message.
type Priority string

// Priority level constants.
const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// IsValidPriority returns true if p is a known priority level.
func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// DeliveryPhase is the lifecycle phase of a message for one recipient,
// derived from the confirmation flags.
type DeliveryPhase string

// Delivery phase constants.
const (
	PhaseUndelivered DeliveryPhase = "undelivered"
	PhaseDelivered   DeliveryPhase = "delivered"
	PhaseRead        DeliveryPhase = "read"
)

// Message is an immutable message record. It is written once at send time
// and shared by every recipient; all mutable per-recipient data lives in
// RecipientState.
type Message struct {
	ID           string    `json:"id" db:"id" bson:"_id"`
	SenderID     string    `json:"sender_id" db:"sender_id" bson:"sender_id"`
	SenderName   string    `json:"sender_name" db:"sender_name" bson:"sender_name"`
	SenderImage  string    `json:"sender_image,omitempty" db:"sender_image" bson:"sender_image,omitempty"`
	Subject      string    `json:"subject" db:"subject" bson:"subject"`
	Body         string    `json:"body" db:"body" bson:"body"`
	ThreadID     string    `json:"thread_id,omitempty" db:"thread_id" bson:"thread_id,omitempty"`
	RecipientIDs []string  `json:"recipient_ids" db:"recipient_ids" bson:"recipient_ids"`
	Attachments  []string  `json:"attachments,omitempty" db:"attachments" bson:"attachments,omitempty"`
	CreatedAt    time.Time `json:"created_at" db:"created_at" bson:"created_at"`
}

// ThreadKey returns the key under which this message is grouped in an
// inbox view. Messages with an explicit thread ID group by it; otherwise
// each sender forms an implicit thread.
func (m *Message) ThreadKey() string {
	if m.ThreadID != "" {
		return m.ThreadID
	}
	return m.SenderID
}

// RecipientState is the mutable per-recipient view of a message. Exactly
// one state row exists per (message, recipient) pair, created by the
// send fan-out. Read and Priority are freely togglable; the confirmation
// fields are monotonic and never regress.
type RecipientState struct {
	MessageID   string   `json:"message_id" db:"message_id" bson:"message_id"`
	RecipientID string   `json:"recipient_id" db:"recipient_id" bson:"recipient_id"`
	Read        bool     `json:"read" db:"read" bson:"read"`
	Priority    Priority `json:"priority" db:"priority" bson:"priority"`

	DeliveredConfirmed bool       `json:"delivered_confirmed" db:"delivered_confirmed" bson:"delivered_confirmed"`
	DeliveredAt        *time.Time `json:"delivered_at,omitempty" db:"delivered_at" bson:"delivered_at,omitempty"`
	ReadConfirmed      bool       `json:"read_confirmed" db:"read_confirmed" bson:"read_confirmed"`
	ReadConfirmedAt    *time.Time `json:"read_confirmed_at,omitempty" db:"read_confirmed_at" bson:"read_confirmed_at,omitempty"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at" bson:"updated_at"`
}

// Phase derives the delivery lifecycle phase from the confirmation flags.
func (s *RecipientState) Phase() DeliveryPhase {
	switch {
	case s.ReadConfirmed:
		return PhaseRead
	case s.DeliveredConfirmed:
		return PhaseDelivered
	default:
		return PhaseUndelivered
	}
}

// MessageData contains data for creating a new message. The store assigns
// the ID and creation timestamp and fans out one RecipientState per
// recipient in the same atomic operation.
type MessageData struct {
	SenderID     string
	SenderName   string
	SenderImage  string
	Subject      string
	Body         string
	ThreadID     string
	RecipientIDs []string
	Attachments  []string
}

// InboxEntry pairs a message with the calling recipient's state. Inbox
// listings return entries ordered by message creation time, newest first.
type InboxEntry struct {
	Message *Message        `json:"message"`
	State   *RecipientState `json:"state"`
}

// StateCounts summarizes a recipient's mailbox.
type StateCounts struct {
	Total  int64 `json:"total"`
	Unread int64 `json:"unread"`
}
