package messaging

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/rucko24/technovationslp-backend/store"
)

// SendRequest contains the fields for sending a new message.
type SendRequest struct {
	// RecipientIDs lists the recipients. Duplicates are removed before
	// validation and delivery.
	RecipientIDs []string
	// Subject is the message subject (required).
	Subject string
	// Body is the message body.
	Body string
	// ThreadID groups the message into an explicit conversation thread
	// (optional). Without it, recipients see the message threaded under
	// the sender.
	ThreadID string
	// Attachments holds opaque attachment references (optional).
	Attachments []string
}

// Send creates a message from the caller and fans it out to all recipients.
//
// The message and every recipient's state row are created in a single
// atomic store operation. On failure no recipient sees the message and
// the whole send can be retried.
func (m *userMailbox) Send(ctx context.Context, req SendRequest) (*Message, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}

	// Step 1: Deduplicate recipients before validation so that the recipient
	// count check reflects the actual number of unique recipients.
	req.RecipientIDs = deduplicateRecipients(req.RecipientIDs)

	// Step 2: Validate the request (before acquiring semaphore to avoid wasting slots)
	if err := ValidateSendRequest(req, m.service.opts.getLimits()); err != nil {
		return nil, err
	}

	// Setup tracing
	ctx, endSpan := m.service.otel.startSpan(ctx, "messaging.send",
		attribute.String("user_id", m.userID),
		attribute.Int("recipient_count", len(req.RecipientIDs)),
	)
	start := time.Now()
	var sendErr error
	defer func() {
		endSpan(sendErr)
		m.service.otel.recordSend(ctx, time.Since(start), len(req.RecipientIDs), sendErr)
	}()

	// Step 3: Acquire send semaphore
	if err := m.service.sendSem.Acquire(ctx, 1); err != nil {
		sendErr = err
		return nil, sendErr
	}
	defer m.service.sendSem.Release(1)

	// Step 4: Snapshot the sender's profile into the message
	data := store.MessageData{
		SenderID:     m.userID,
		SenderName:   m.userID,
		Subject:      req.Subject,
		Body:         req.Body,
		ThreadID:     req.ThreadID,
		RecipientIDs: req.RecipientIDs,
		Attachments:  req.Attachments,
	}
	if m.service.identity != nil {
		profile, err := m.service.identity.Resolve(ctx, m.userID)
		if err != nil {
			// Resolution failures degrade to the bare user ID rather
			// than blocking the send.
			m.service.logger.Warn("failed to resolve sender profile",
				"user_id", m.userID, "error", err)
		} else if profile != nil {
			data.SenderName = profile.Name
			data.SenderImage = profile.ImageRef
		}
	}

	// Step 5: Plugin BeforeSend hook
	if err := m.service.plugins.beforeSend(ctx, m.userID, data); err != nil {
		sendErr = err
		return nil, sendErr
	}

	// Step 6: Atomic create and fan-out
	msg, err := m.service.store.CreateMessage(ctx, data)
	if err != nil {
		sendErr = storeErr("create message", err)
		return nil, sendErr
	}

	// Step 7: Publish sent event
	if err := m.service.events.MessageSent.Publish(ctx, MessageSentEvent{
		MessageID:    msg.ID,
		SenderID:     msg.SenderID,
		RecipientIDs: msg.RecipientIDs,
		Subject:      msg.Subject,
		ThreadKey:    msg.ThreadKey(),
		SentAt:       msg.CreatedAt,
	}); err != nil {
		if m.service.opts.eventErrorsFatal {
			// Message is already sent - return it with the event error
			sendErr = &EventPublishError{
				Event:     "MessageSent",
				MessageID: msg.ID,
				Err:       err,
			}
			return msg, sendErr
		}
		m.service.opts.safeEventPublishFailure("MessageSent", err)
	}

	// Step 8: Plugin AfterSend hook
	if err := m.service.plugins.afterSend(ctx, m.userID, msg); err != nil {
		sendErr = err
		return msg, sendErr
	}

	return msg, nil
}
