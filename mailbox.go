package messaging

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/rucko24/technovationslp-backend/retry"
	"github.com/rucko24/technovationslp-backend/store"
)

// Type aliases for commonly used store types.
// These allow users to work with the messaging package without importing store directly.
type (
	Message        = store.Message
	RecipientState = store.RecipientState
	Priority       = store.Priority
	DeliveryPhase  = store.DeliveryPhase
	InboxEntry     = store.InboxEntry
	StateCounts    = store.StateCounts
)

// Re-exported priority levels.
const (
	PriorityLow    = store.PriorityLow
	PriorityNormal = store.PriorityNormal
	PriorityHigh   = store.PriorityHigh
)

// Re-exported delivery phases.
const (
	PhaseUndelivered = store.PhaseUndelivered
	PhaseDelivered   = store.PhaseDelivered
	PhaseRead        = store.PhaseRead
)

// MessageDetail is the full view of a message for one recipient: the
// immutable content, the caller's own state, and the state of every
// recipient. Only recipients can obtain it.
type MessageDetail struct {
	Message *Message `json:"message"`
	// State is the caller's own recipient state.
	State *RecipientState `json:"state"`
	// Receivers holds the state of every recipient, the caller included.
	Receivers []*RecipientState `json:"receivers"`
}

// MessageReader provides single message retrieval.
type MessageReader interface {
	// Get retrieves a message together with the caller's recipient state
	// and the full recipient state list.
	// Returns ErrNotFound if the message doesn't exist or the caller is
	// not one of its recipients; the two cases are indistinguishable.
	Get(ctx context.Context, messageID string) (*MessageDetail, error)
}

// InboxReader provides aggregated inbox views.
type InboxReader interface {
	// Inbox returns the caller's messages grouped by thread key,
	// newest first within each thread.
	Inbox(ctx context.Context) (Inbox, error)

	// Entries returns the caller's inbox as a flat list ordered by
	// message creation time descending.
	Entries(ctx context.Context) ([]*InboxEntry, error)

	// Stats returns total and unread counts for the caller's inbox.
	Stats(ctx context.Context) (*StateCounts, error)
}

// StateMutator provides togglable per-recipient state mutations.
type StateMutator interface {
	// MarkRead sets the read flag on the caller's state for a message.
	MarkRead(ctx context.Context, messageID string) (*RecipientState, error)

	// MarkUnread clears the read flag. A read confirmation recorded
	// earlier is preserved; only the togglable flag changes.
	MarkUnread(ctx context.Context, messageID string) (*RecipientState, error)

	// SetPriority sets the caller's priority level for a message.
	// Returns ErrInvalidPriority for unknown levels.
	SetPriority(ctx context.Context, messageID string, priority Priority) (*RecipientState, error)

	// SetPriorityHigh flags a message as high priority for the caller.
	SetPriorityHigh(ctx context.Context, messageID string) (*RecipientState, error)

	// SetPriorityLow flags a message as low priority for the caller.
	SetPriorityLow(ctx context.Context, messageID string) (*RecipientState, error)
}

// DeliveryConfirmer records client-side delivery and read confirmations.
// Confirmations are monotonic and idempotent: replays keep the timestamp
// recorded by the first confirmation and succeed.
type DeliveryConfirmer interface {
	// ConfirmDelivered records that the caller's client received the message.
	ConfirmDelivered(ctx context.Context, messageID string) (*RecipientState, error)

	// ConfirmRead records that the caller read the message. Implies
	// delivery and sets the read flag.
	ConfirmRead(ctx context.Context, messageID string) (*RecipientState, error)
}

// MessageSender provides message sending.
type MessageSender interface {
	// Send creates a message from the caller and fans it out to all
	// recipients atomically.
	Send(ctx context.Context, req SendRequest) (*Message, error)
}

// Mailbox provides messaging functionality for a single user.
// This is the main interface for per-user operations.
//
// Composed of focused client interfaces:
//   - MessageReader: Single message retrieval (Get)
//   - InboxReader: Aggregated inbox views (Inbox, Entries, Stats)
//   - StateMutator: Togglable state mutations (MarkRead, MarkUnread, SetPriority)
//   - DeliveryConfirmer: Monotonic confirmations (ConfirmDelivered, ConfirmRead)
//   - MessageSender: Sending (Send)
//
// For applications needing only a subset of functionality, use the
// focused interfaces directly.
type Mailbox interface {
	UserID() string
	MessageReader
	InboxReader
	StateMutator
	DeliveryConfirmer
	MessageSender
}

// userMailbox is the default implementation of Mailbox.
type userMailbox struct {
	userID      string
	service     *service
	validUserID bool // set by Client() after validation
}

// UserID returns the user ID of this mailbox.
func (m *userMailbox) UserID() string {
	return m.userID
}

// isConnected checks if the service is connected.
func (m *userMailbox) isConnected() bool {
	return atomic.LoadInt32(&m.service.state) == stateConnected
}

// checkAccess verifies the mailbox is ready for operations.
// Returns ErrNotConnected if service isn't connected,
// or ErrInvalidUserID if user ID failed validation.
func (m *userMailbox) checkAccess() error {
	if !m.isConnected() {
		return ErrNotConnected
	}
	if !m.validUserID {
		return ErrInvalidUserID
	}
	return nil
}

// Get retrieves a message together with the caller's recipient state
// and the full recipient state list.
//
// The caller's state row is looked up first. A caller without a state
// row gets ErrNotFound before the message itself is touched, so
// non-recipients cannot distinguish "no such message" from "not yours".
func (m *userMailbox) Get(ctx context.Context, messageID string) (*MessageDetail, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}

	// OTel tracing
	ctx, endSpan := m.service.otel.startSpan(ctx, "messaging.get",
		attribute.String("user_id", m.userID),
		attribute.String("message_id", messageID),
	)
	start := time.Now()
	var getErr error
	defer func() {
		endSpan(getErr)
		m.service.otel.recordGet(ctx, time.Since(start), "get", getErr)
	}()

	st, err := m.service.store.GetState(ctx, messageID, m.userID)
	if err != nil {
		getErr = err
		return nil, storeErr("get state", err)
	}

	msg, err := m.service.store.GetMessage(ctx, messageID)
	if err != nil {
		getErr = err
		return nil, storeErr("get message", err)
	}

	receivers, err := m.service.store.ListStates(ctx, messageID)
	if err != nil {
		getErr = err
		return nil, storeErr("list states", err)
	}

	return &MessageDetail{Message: msg, State: st, Receivers: receivers}, nil
}

// MarkRead sets the read flag on the caller's state for a message.
func (m *userMailbox) MarkRead(ctx context.Context, messageID string) (*RecipientState, error) {
	st, err := m.setRead(ctx, messageID, true)
	if err != nil {
		return nil, err
	}

	// Publish read event (only for marking as read, not unread)
	if err := m.service.events.MessageRead.Publish(ctx, MessageReadEvent{
		MessageID:   messageID,
		RecipientID: m.userID,
		Confirmed:   false,
		ReadAt:      st.UpdatedAt,
	}); err != nil {
		if m.service.opts.eventErrorsFatal {
			// Operation succeeded but event failed - return EventPublishError
			return st, &EventPublishError{
				Event:     "MessageRead",
				MessageID: messageID,
				Err:       err,
			}
		}
		m.service.opts.safeEventPublishFailure("MessageRead", err)
	}

	return st, nil
}

// MarkUnread clears the read flag on the caller's state for a message.
// A previously recorded read confirmation stays in place.
func (m *userMailbox) MarkUnread(ctx context.Context, messageID string) (*RecipientState, error) {
	return m.setRead(ctx, messageID, false)
}

// setRead is the shared implementation of MarkRead and MarkUnread.
func (m *userMailbox) setRead(ctx context.Context, messageID string, read bool) (*RecipientState, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}

	ctx, endSpan := m.service.otel.startSpan(ctx, "messaging.set_read",
		attribute.String("user_id", m.userID),
		attribute.String("message_id", messageID),
		attribute.Bool("read", read),
	)
	start := time.Now()
	var opErr error
	defer func() {
		endSpan(opErr)
		m.service.otel.recordUpdate(ctx, time.Since(start), "set_read", opErr)
	}()

	st, err := m.service.store.SetRead(ctx, messageID, m.userID, read)
	if err != nil {
		opErr = err
		return nil, storeErr("set read", err)
	}
	return st, nil
}

// SetPriority sets the caller's priority level for a message.
func (m *userMailbox) SetPriority(ctx context.Context, messageID string, priority Priority) (*RecipientState, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}
	if !store.IsValidPriority(priority) {
		return nil, ErrInvalidPriority
	}

	ctx, endSpan := m.service.otel.startSpan(ctx, "messaging.set_priority",
		attribute.String("user_id", m.userID),
		attribute.String("message_id", messageID),
		attribute.String("priority", string(priority)),
	)
	start := time.Now()
	var opErr error
	defer func() {
		endSpan(opErr)
		m.service.otel.recordUpdate(ctx, time.Since(start), "set_priority", opErr)
	}()

	st, err := m.service.store.SetPriority(ctx, messageID, m.userID, priority)
	if err != nil {
		opErr = err
		return nil, storeErr("set priority", err)
	}
	return st, nil
}

// SetPriorityHigh flags a message as high priority for the caller.
func (m *userMailbox) SetPriorityHigh(ctx context.Context, messageID string) (*RecipientState, error) {
	return m.SetPriority(ctx, messageID, PriorityHigh)
}

// SetPriorityLow flags a message as low priority for the caller.
func (m *userMailbox) SetPriorityLow(ctx context.Context, messageID string) (*RecipientState, error) {
	return m.SetPriority(ctx, messageID, PriorityLow)
}

// ConfirmDelivered records that the caller's client received the message.
//
// The confirmation time is captured once before any retries, so a retried
// confirmation carries the same timestamp as the first attempt. Replays
// against an already-confirmed state return the stored state unchanged.
func (m *userMailbox) ConfirmDelivered(ctx context.Context, messageID string) (*RecipientState, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}

	ctx, endSpan := m.service.otel.startSpan(ctx, "messaging.confirm_delivered",
		attribute.String("user_id", m.userID),
		attribute.String("message_id", messageID),
	)
	start := time.Now()
	var opErr error
	defer func() {
		endSpan(opErr)
		m.service.otel.recordConfirm(ctx, time.Since(start), "delivered", opErr)
	}()

	at := time.Now().UTC()
	st, err := retry.DoWithResult(ctx, m.service.opts.confirmRetry, func(ctx context.Context) (*store.RecipientState, error) {
		return m.service.store.ConfirmDelivered(ctx, messageID, m.userID, at)
	})
	if err != nil {
		opErr = err
		return nil, storeErr("confirm delivered", err)
	}

	deliveredAt := at
	if st.DeliveredAt != nil {
		deliveredAt = *st.DeliveredAt
	}
	if err := m.service.events.DeliveryConfirmed.Publish(ctx, DeliveryConfirmedEvent{
		MessageID:   messageID,
		RecipientID: m.userID,
		DeliveredAt: deliveredAt,
	}); err != nil {
		if m.service.opts.eventErrorsFatal {
			return st, &EventPublishError{
				Event:     "DeliveryConfirmed",
				MessageID: messageID,
				Err:       err,
			}
		}
		m.service.opts.safeEventPublishFailure("DeliveryConfirmed", err)
	}

	return st, nil
}

// ConfirmRead records that the caller read the message. The read flag is
// set and an unconfirmed delivery is stamped with the same time.
func (m *userMailbox) ConfirmRead(ctx context.Context, messageID string) (*RecipientState, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}

	ctx, endSpan := m.service.otel.startSpan(ctx, "messaging.confirm_read",
		attribute.String("user_id", m.userID),
		attribute.String("message_id", messageID),
	)
	start := time.Now()
	var opErr error
	defer func() {
		endSpan(opErr)
		m.service.otel.recordConfirm(ctx, time.Since(start), "read", opErr)
	}()

	at := time.Now().UTC()
	st, err := retry.DoWithResult(ctx, m.service.opts.confirmRetry, func(ctx context.Context) (*store.RecipientState, error) {
		return m.service.store.ConfirmRead(ctx, messageID, m.userID, at)
	})
	if err != nil {
		opErr = err
		return nil, storeErr("confirm read", err)
	}

	readAt := at
	if st.ReadConfirmedAt != nil {
		readAt = *st.ReadConfirmedAt
	}
	if err := m.service.events.MessageRead.Publish(ctx, MessageReadEvent{
		MessageID:   messageID,
		RecipientID: m.userID,
		Confirmed:   true,
		ReadAt:      readAt,
	}); err != nil {
		if m.service.opts.eventErrorsFatal {
			return st, &EventPublishError{
				Event:     "MessageRead",
				MessageID: messageID,
				Err:       err,
			}
		}
		m.service.opts.safeEventPublishFailure("MessageRead", err)
	}

	return st, nil
}
