package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/rbaliyan/event/v3"
)

// Event names for messaging events.
const (
	EventNameMessageSent       = "messaging.message.sent"
	EventNameMessageRead       = "messaging.message.read"
	EventNameDeliveryConfirmed = "messaging.delivery.confirmed"
)

// MessageSentEvent is published when a message is sent.
// This is the primary event for notifying recipients of new messages.
type MessageSentEvent struct {
	MessageID    string    `json:"message_id"`
	SenderID     string    `json:"sender_id"`
	RecipientIDs []string  `json:"recipient_ids"`
	Subject      string    `json:"subject"`
	ThreadKey    string    `json:"thread_key"`
	SentAt       time.Time `json:"sent_at"`
}

// MessageReadEvent is published when a recipient marks a message as read
// or confirms reading it. Use this for read receipts and engagement tracking.
type MessageReadEvent struct {
	MessageID   string    `json:"message_id"`
	RecipientID string    `json:"recipient_id"`
	Confirmed   bool      `json:"confirmed"` // true for read receipts, false for the togglable flag
	ReadAt      time.Time `json:"read_at"`
}

// DeliveryConfirmedEvent is published when a recipient's client confirms
// delivery of a message.
type DeliveryConfirmedEvent struct {
	MessageID   string    `json:"message_id"`
	RecipientID string    `json:"recipient_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// ServiceEvents provides access to per-service event instances.
// Each service creates its own events bound to its own event bus,
// enabling independent event routing and parallel testing.
//
// Subscribe to events:
//
//	svc.Events().MessageSent.Subscribe(ctx, handler)
//	svc.Events().MessageRead.Subscribe(ctx, handler)
//	svc.Events().DeliveryConfirmed.Subscribe(ctx, handler)
type ServiceEvents struct {
	// MessageSent is published when a message is sent.
	MessageSent event.Event[MessageSentEvent]

	// MessageRead is published when a message is marked or confirmed read.
	MessageRead event.Event[MessageReadEvent]

	// DeliveryConfirmed is published when a delivery confirmation lands.
	DeliveryConfirmed event.Event[DeliveryConfirmedEvent]
}

// newServiceEvents creates per-service event instances with a unique name prefix.
func newServiceEvents(namePrefix string) *ServiceEvents {
	return &ServiceEvents{
		MessageSent:       event.New[MessageSentEvent](namePrefix + "." + EventNameMessageSent),
		MessageRead:       event.New[MessageReadEvent](namePrefix + "." + EventNameMessageRead),
		DeliveryConfirmed: event.New[DeliveryConfirmedEvent](namePrefix + "." + EventNameDeliveryConfirmed),
	}
}

// registerServiceEvents registers per-service events with the given bus.
func registerServiceEvents(ctx context.Context, bus *event.Bus, events *ServiceEvents) error {
	if err := event.Register(ctx, bus, events.MessageSent); err != nil {
		return fmt.Errorf("register MessageSent: %w", err)
	}
	if err := event.Register(ctx, bus, events.MessageRead); err != nil {
		return fmt.Errorf("register MessageRead: %w", err)
	}
	if err := event.Register(ctx, bus, events.DeliveryConfirmed); err != nil {
		return fmt.Errorf("register DeliveryConfirmed: %w", err)
	}
	return nil
}
