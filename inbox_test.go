package messaging

import (
	"context"
	"testing"
	"time"
)

func TestInboxGrouping(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	defer svc.Close(ctx)

	mentor := svc.Client("mentor")
	admin := svc.Client("admin")
	alice := svc.Client("alice")

	// Explicit thread groups by thread ID regardless of sender.
	m1 := mustSend(t, mentor, SendRequest{
		RecipientIDs: []string{"alice"},
		Subject:      "kickoff",
		ThreadID:     "project-42",
	})
	time.Sleep(2 * time.Millisecond)
	m2 := mustSend(t, admin, SendRequest{
		RecipientIDs: []string{"alice"},
		Subject:      "kickoff follow-up",
		ThreadID:     "project-42",
	})
	time.Sleep(2 * time.Millisecond)
	// No thread ID groups under the sender.
	m3 := mustSend(t, admin, SendRequest{
		RecipientIDs: []string{"alice"},
		Subject:      "schedule change",
	})

	inbox, err := alice.Inbox(ctx)
	if err != nil {
		t.Fatalf("inbox failed: %v", err)
	}

	if len(inbox) != 2 {
		t.Fatalf("expected 2 threads, got %d: %v", len(inbox), inbox.Threads())
	}

	thread := inbox["project-42"]
	if len(thread) != 2 {
		t.Fatalf("expected 2 headers in project-42, got %d", len(thread))
	}
	// Newest first within the thread.
	if thread[0].MessageID != m2.ID || thread[1].MessageID != m1.ID {
		t.Errorf("expected [%s %s], got [%s %s]",
			m2.ID, m1.ID, thread[0].MessageID, thread[1].MessageID)
	}

	senderThread := inbox["admin"]
	if len(senderThread) != 1 || senderThread[0].MessageID != m3.ID {
		t.Errorf("expected admin thread with %s, got %v", m3.ID, senderThread)
	}

	// Most recently active thread first.
	threads := inbox.Threads()
	if threads[0] != "admin" || threads[1] != "project-42" {
		t.Errorf("expected [admin project-42], got %v", threads)
	}
}

func TestInboxHeaders(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, WithIdentityResolver(&stubResolver{
		profiles: map[string]*Profile{
			"mentor": {UserID: "mentor", Name: "Maria", ImageRef: "gs://avatars/maria"},
		},
	}))
	defer svc.Close(ctx)

	msg := mustSend(t, svc.Client("mentor"), SendRequest{
		RecipientIDs: []string{"alice"},
		Subject:      "welcome",
		Body:         "long body that headers must not carry",
	})

	alice := svc.Client("alice")
	if _, err := alice.SetPriorityHigh(ctx, msg.ID); err != nil {
		t.Fatalf("set priority failed: %v", err)
	}

	inbox, err := alice.Inbox(ctx)
	if err != nil {
		t.Fatalf("inbox failed: %v", err)
	}
	headers := inbox["mentor"]
	if len(headers) != 1 {
		t.Fatalf("expected 1 header, got %d", len(headers))
	}

	h := headers[0]
	if h.MessageID != msg.ID {
		t.Errorf("expected message ID %s, got %s", msg.ID, h.MessageID)
	}
	if h.SenderName != "Maria" {
		t.Errorf("expected snapshot sender name, got %q", h.SenderName)
	}
	if h.Subject != "welcome" {
		t.Errorf("expected subject, got %q", h.Subject)
	}
	if h.Read {
		t.Error("expected unread header")
	}
	if h.Priority != PriorityHigh {
		t.Errorf("expected high priority, got %q", h.Priority)
	}
	if h.Phase != PhaseUndelivered {
		t.Errorf("expected undelivered phase, got %q", h.Phase)
	}
}

func TestInboxEmpty(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	defer svc.Close(ctx)

	inbox, err := svc.Client("nobody-wrote-to-me").Inbox(ctx)
	if err != nil {
		t.Fatalf("inbox failed: %v", err)
	}
	if len(inbox) != 0 {
		t.Errorf("expected empty inbox, got %d threads", len(inbox))
	}
	if inbox == nil {
		t.Error("expected empty map, not nil")
	}
}

func TestInboxOnlyOwnMessages(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	defer svc.Close(ctx)

	mustSend(t, svc.Client("sender"), SendRequest{
		RecipientIDs: []string{"alice"},
		Subject:      "for alice",
	})
	mustSend(t, svc.Client("sender"), SendRequest{
		RecipientIDs: []string{"bob"},
		Subject:      "for bob",
	})

	entries, err := svc.Client("alice").Entries(ctx)
	if err != nil {
		t.Fatalf("entries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry for alice, got %d", len(entries))
	}
	if entries[0].Message.Subject != "for alice" {
		t.Errorf("expected alice's message, got %q", entries[0].Message.Subject)
	}
}

func TestEntriesOrdering(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	defer svc.Close(ctx)

	var ids []string
	for _, subject := range []string{"first", "second", "third"} {
		msg := mustSend(t, svc.Client("sender"), SendRequest{
			RecipientIDs: []string{"alice"},
			Subject:      subject,
		})
		ids = append(ids, msg.ID)
		time.Sleep(2 * time.Millisecond)
	}

	entries, err := svc.Client("alice").Entries(ctx)
	if err != nil {
		t.Fatalf("entries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// Newest first.
	for i, want := range []string{ids[2], ids[1], ids[0]} {
		if entries[i].Message.ID != want {
			t.Errorf("entry %d: expected %s, got %s", i, want, entries[i].Message.ID)
		}
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	defer svc.Close(ctx)

	alice := svc.Client("alice")

	stats, err := alice.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Total != 0 || stats.Unread != 0 {
		t.Errorf("expected zero counts, got %+v", stats)
	}

	m1 := mustSend(t, svc.Client("sender"), SendRequest{
		RecipientIDs: []string{"alice"},
		Subject:      "one",
	})
	mustSend(t, svc.Client("sender"), SendRequest{
		RecipientIDs: []string{"alice"},
		Subject:      "two",
	})

	if _, err := alice.MarkRead(ctx, m1.ID); err != nil {
		t.Fatalf("mark read failed: %v", err)
	}

	stats, err = alice.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Total != 2 || stats.Unread != 1 {
		t.Errorf("expected total=2 unread=1, got %+v", stats)
	}

	inbox, err := alice.Inbox(ctx)
	if err != nil {
		t.Fatalf("inbox failed: %v", err)
	}
	if inbox.Unread() != 1 {
		t.Errorf("expected 1 unread header, got %d", inbox.Unread())
	}
}
