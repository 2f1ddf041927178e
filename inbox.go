package messaging

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Header is a lightweight inbox view of a message for one recipient.
// It carries the immutable message fields an inbox listing needs plus
// the recipient's own state, without the message body.
type Header struct {
	MessageID   string        `json:"message_id"`
	SenderID    string        `json:"sender_id"`
	SenderName  string        `json:"sender_name"`
	SenderImage string        `json:"sender_image,omitempty"`
	Subject     string        `json:"subject"`
	ThreadKey   string        `json:"thread_key"`
	Priority    Priority      `json:"priority"`
	Read        bool          `json:"read"`
	Phase       DeliveryPhase `json:"phase"`
	CreatedAt   time.Time     `json:"created_at"`
}

// headerFromEntry projects an inbox entry onto its header view.
func headerFromEntry(e *InboxEntry) Header {
	return Header{
		MessageID:   e.Message.ID,
		SenderID:    e.Message.SenderID,
		SenderName:  e.Message.SenderName,
		SenderImage: e.Message.SenderImage,
		Subject:     e.Message.Subject,
		ThreadKey:   e.Message.ThreadKey(),
		Priority:    e.State.Priority,
		Read:        e.State.Read,
		Phase:       e.State.Phase(),
		CreatedAt:   e.Message.CreatedAt,
	}
}

// Inbox groups a recipient's message headers by thread key. Within each
// thread, headers are ordered by creation time descending (newest first).
// Messages with an explicit thread ID group by it; the rest group by
// sender.
type Inbox map[string][]Header

// Threads returns the thread keys ordered by each thread's newest
// message, most recently active thread first.
func (in Inbox) Threads() []string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		// Headers are newest-first, so index 0 is the thread's latest.
		return in[keys[i]][0].CreatedAt.After(in[keys[j]][0].CreatedAt)
	})
	return keys
}

// Unread returns the number of unread headers across all threads.
func (in Inbox) Unread() int {
	var n int
	for _, headers := range in {
		for _, h := range headers {
			if !h.Read {
				n++
			}
		}
	}
	return n
}

// Inbox returns the caller's messages grouped by thread key.
func (m *userMailbox) Inbox(ctx context.Context) (Inbox, error) {
	entries, err := m.listEntries(ctx, "inbox")
	if err != nil {
		return nil, err
	}

	// Entries arrive newest-first, so appending preserves per-thread order.
	inbox := make(Inbox)
	for _, e := range entries {
		key := e.Message.ThreadKey()
		inbox[key] = append(inbox[key], headerFromEntry(e))
	}
	return inbox, nil
}

// Entries returns the caller's inbox as a flat list, newest first.
func (m *userMailbox) Entries(ctx context.Context) ([]*InboxEntry, error) {
	return m.listEntries(ctx, "entries")
}

// listEntries is the shared implementation of Inbox and Entries.
func (m *userMailbox) listEntries(ctx context.Context, operation string) ([]*InboxEntry, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}

	ctx, endSpan := m.service.otel.startSpan(ctx, "messaging."+operation,
		attribute.String("user_id", m.userID),
	)
	start := time.Now()
	var listErr error
	defer func() {
		endSpan(listErr)
		m.service.otel.recordGet(ctx, time.Since(start), operation, listErr)
	}()

	entries, err := m.service.store.ListByRecipient(ctx, m.userID)
	if err != nil {
		listErr = err
		return nil, storeErr("list by recipient", err)
	}
	return entries, nil
}

// Stats returns total and unread counts for the caller's inbox.
func (m *userMailbox) Stats(ctx context.Context) (*StateCounts, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}

	ctx, endSpan := m.service.otel.startSpan(ctx, "messaging.stats",
		attribute.String("user_id", m.userID),
	)
	start := time.Now()
	var statsErr error
	defer func() {
		endSpan(statsErr)
		m.service.otel.recordGet(ctx, time.Since(start), "stats", statsErr)
	}()

	counts, err := m.service.store.CountByRecipient(ctx, m.userID)
	if err != nil {
		statsErr = err
		return nil, storeErr("count by recipient", err)
	}
	return counts, nil
}
