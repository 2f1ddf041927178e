package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rucko24/technovationslp-backend/store"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s := New()
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func createMessage(t *testing.T, s *Store, data store.MessageData) *store.Message {
	t.Helper()
	msg, err := s.CreateMessage(context.Background(), data)
	if err != nil {
		t.Fatalf("create message: %v", err)
	}
	return msg
}

func TestConnectLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.GetMessage(ctx, "any"); !errors.Is(err, store.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected before connect, got %v", err)
	}
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := s.Connect(ctx); !errors.Is(err, store.ErrAlreadyConnected) {
		t.Errorf("expected ErrAlreadyConnected, got %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := s.ListByRecipient(ctx, "alice"); !errors.Is(err, store.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected after close, got %v", err)
	}
}

func TestCreateMessage(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	t.Run("fans out one state per recipient", func(t *testing.T) {
		msg := createMessage(t, s, store.MessageData{
			SenderID:     "admin",
			SenderName:   "Admin",
			Subject:      "welcome",
			Body:         "hello",
			RecipientIDs: []string{"alice", "bob"},
		})
		if msg.ID == "" {
			t.Error("expected generated ID")
		}
		if msg.CreatedAt.IsZero() {
			t.Error("expected creation timestamp")
		}

		states, err := s.ListStates(ctx, msg.ID)
		if err != nil {
			t.Fatalf("list states: %v", err)
		}
		if len(states) != 2 {
			t.Fatalf("expected 2 states, got %d", len(states))
		}
		for _, st := range states {
			if st.Read {
				t.Errorf("state for %s should start unread", st.RecipientID)
			}
			if st.Priority != store.PriorityNormal {
				t.Errorf("state for %s should start normal, got %s", st.RecipientID, st.Priority)
			}
			if st.DeliveredConfirmed || st.ReadConfirmed {
				t.Errorf("state for %s should start unconfirmed", st.RecipientID)
			}
		}
	})

	t.Run("empty recipients rejected", func(t *testing.T) {
		_, err := s.CreateMessage(ctx, store.MessageData{SenderID: "admin", Subject: "x"})
		if !errors.Is(err, store.ErrEmptyRecipients) {
			t.Errorf("expected ErrEmptyRecipients, got %v", err)
		}
	})

	t.Run("duplicate recipients rejected", func(t *testing.T) {
		_, err := s.CreateMessage(ctx, store.MessageData{
			SenderID:     "admin",
			Subject:      "x",
			RecipientIDs: []string{"alice", "alice"},
		})
		if !errors.Is(err, store.ErrDuplicateEntry) {
			t.Errorf("expected ErrDuplicateEntry, got %v", err)
		}
	})
}

func TestGetMessage(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	msg := createMessage(t, s, store.MessageData{
		SenderID:     "admin",
		Subject:      "hi",
		RecipientIDs: []string{"alice"},
		Attachments:  []string{"resource://docs/guide.pdf"},
	})

	got, err := s.GetMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if got.Subject != "hi" || len(got.Attachments) != 1 {
		t.Errorf("unexpected message: %+v", got)
	}

	if _, err := s.GetMessage(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetMessage(ctx, ""); !errors.Is(err, store.ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
}

func TestDeleteMessage(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	msg := createMessage(t, s, store.MessageData{
		SenderID:     "admin",
		Subject:      "hi",
		RecipientIDs: []string{"alice"},
	})

	if err := s.DeleteMessage(ctx, msg.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetMessage(ctx, msg.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := s.GetState(ctx, msg.ID, "alice"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected state gone after delete, got %v", err)
	}
	if err := s.DeleteMessage(ctx, msg.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestGetState(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	msg := createMessage(t, s, store.MessageData{
		SenderID:     "admin",
		Subject:      "hi",
		RecipientIDs: []string{"alice"},
	})

	st, err := s.GetState(ctx, msg.ID, "alice")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if st.MessageID != msg.ID || st.RecipientID != "alice" {
		t.Errorf("unexpected state: %+v", st)
	}

	// Missing message and missing recipient are indistinguishable.
	if _, err := s.GetState(ctx, "missing", "alice"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing message, got %v", err)
	}
	if _, err := s.GetState(ctx, msg.ID, "bob"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for non-recipient, got %v", err)
	}
}

func TestListByRecipient(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	first := createMessage(t, s, store.MessageData{
		SenderID: "admin", Subject: "first", RecipientIDs: []string{"alice", "bob"},
	})
	time.Sleep(2 * time.Millisecond)
	second := createMessage(t, s, store.MessageData{
		SenderID: "admin", Subject: "second", RecipientIDs: []string{"alice"},
	})

	entries, err := s.ListByRecipient(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message.ID != second.ID || entries[1].Message.ID != first.ID {
		t.Error("expected newest-first ordering")
	}

	entries, err = s.ListByRecipient(ctx, "bob")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Message.ID != first.ID {
		t.Errorf("expected 1 entry for bob, got %d", len(entries))
	}

	entries, err = s.ListByRecipient(ctx, "nobody")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestCountByRecipient(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	msg := createMessage(t, s, store.MessageData{
		SenderID: "admin", Subject: "a", RecipientIDs: []string{"alice"},
	})
	createMessage(t, s, store.MessageData{
		SenderID: "admin", Subject: "b", RecipientIDs: []string{"alice"},
	})

	counts, err := s.CountByRecipient(ctx, "alice")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts.Total != 2 || counts.Unread != 2 {
		t.Errorf("expected 2/2, got %d/%d", counts.Total, counts.Unread)
	}

	if _, err := s.SetRead(ctx, msg.ID, "alice", true); err != nil {
		t.Fatalf("set read: %v", err)
	}
	counts, err = s.CountByRecipient(ctx, "alice")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts.Total != 2 || counts.Unread != 1 {
		t.Errorf("expected 2/1, got %d/%d", counts.Total, counts.Unread)
	}
}

func TestSetRead(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	msg := createMessage(t, s, store.MessageData{
		SenderID: "admin", Subject: "hi", RecipientIDs: []string{"alice"},
	})

	st, err := s.SetRead(ctx, msg.ID, "alice", true)
	if err != nil {
		t.Fatalf("set read: %v", err)
	}
	if !st.Read {
		t.Error("expected read")
	}

	st, err = s.SetRead(ctx, msg.ID, "alice", false)
	if err != nil {
		t.Fatalf("set unread: %v", err)
	}
	if st.Read {
		t.Error("expected unread")
	}

	if _, err := s.SetRead(ctx, msg.ID, "bob", true); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetPriority(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	msg := createMessage(t, s, store.MessageData{
		SenderID: "admin", Subject: "hi", RecipientIDs: []string{"alice"},
	})

	st, err := s.SetPriority(ctx, msg.ID, "alice", store.PriorityHigh)
	if err != nil {
		t.Fatalf("set priority: %v", err)
	}
	if st.Priority != store.PriorityHigh {
		t.Errorf("expected high, got %s", st.Priority)
	}

	if _, err := s.SetPriority(ctx, msg.ID, "alice", store.Priority("urgent")); !errors.Is(err, store.ErrInvalidPriority) {
		t.Errorf("expected ErrInvalidPriority, got %v", err)
	}
	// Invalid level leaves the state untouched.
	st, err = s.GetState(ctx, msg.ID, "alice")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if st.Priority != store.PriorityHigh {
		t.Errorf("expected high after rejected update, got %s", st.Priority)
	}
}

func TestConfirmDelivered(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	msg := createMessage(t, s, store.MessageData{
		SenderID: "admin", Subject: "hi", RecipientIDs: []string{"alice"},
	})

	first := time.Now().UTC()
	st, err := s.ConfirmDelivered(ctx, msg.ID, "alice", first)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !st.DeliveredConfirmed || st.DeliveredAt == nil || !st.DeliveredAt.Equal(first) {
		t.Errorf("unexpected state: %+v", st)
	}
	if st.Read || st.ReadConfirmed {
		t.Error("delivery confirmation must not mark read")
	}

	// Replays keep the original timestamp.
	st, err = s.ConfirmDelivered(ctx, msg.ID, "alice", first.Add(time.Hour))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !st.DeliveredAt.Equal(first) {
		t.Errorf("replay changed timestamp: %v", st.DeliveredAt)
	}
}

func TestConfirmRead(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	t.Run("implies delivery", func(t *testing.T) {
		msg := createMessage(t, s, store.MessageData{
			SenderID: "admin", Subject: "hi", RecipientIDs: []string{"alice"},
		})
		at := time.Now().UTC()
		st, err := s.ConfirmRead(ctx, msg.ID, "alice", at)
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if !st.Read || !st.ReadConfirmed || !st.DeliveredConfirmed {
			t.Errorf("unexpected state: %+v", st)
		}
		if !st.ReadConfirmedAt.Equal(at) || !st.DeliveredAt.Equal(at) {
			t.Errorf("expected both timestamps %v, got %v/%v", at, st.ReadConfirmedAt, st.DeliveredAt)
		}
	})

	t.Run("keeps earlier delivery timestamp", func(t *testing.T) {
		msg := createMessage(t, s, store.MessageData{
			SenderID: "admin", Subject: "hi", RecipientIDs: []string{"alice"},
		})
		deliveredAt := time.Now().UTC()
		if _, err := s.ConfirmDelivered(ctx, msg.ID, "alice", deliveredAt); err != nil {
			t.Fatalf("confirm delivered: %v", err)
		}
		readAt := deliveredAt.Add(time.Minute)
		st, err := s.ConfirmRead(ctx, msg.ID, "alice", readAt)
		if err != nil {
			t.Fatalf("confirm read: %v", err)
		}
		if !st.DeliveredAt.Equal(deliveredAt) {
			t.Errorf("delivery timestamp regressed: %v", st.DeliveredAt)
		}
		if !st.ReadConfirmedAt.Equal(readAt) {
			t.Errorf("unexpected read timestamp: %v", st.ReadConfirmedAt)
		}
	})

	t.Run("replay is a no-op but still sets read", func(t *testing.T) {
		msg := createMessage(t, s, store.MessageData{
			SenderID: "admin", Subject: "hi", RecipientIDs: []string{"alice"},
		})
		at := time.Now().UTC()
		if _, err := s.ConfirmRead(ctx, msg.ID, "alice", at); err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if _, err := s.SetRead(ctx, msg.ID, "alice", false); err != nil {
			t.Fatalf("set unread: %v", err)
		}

		st, err := s.ConfirmRead(ctx, msg.ID, "alice", at.Add(time.Hour))
		if err != nil {
			t.Fatalf("replay: %v", err)
		}
		if !st.Read {
			t.Error("replay should re-set the read flag")
		}
		if !st.ReadConfirmedAt.Equal(at) {
			t.Errorf("replay changed timestamp: %v", st.ReadConfirmedAt)
		}
	})
}

func TestCloneIsolation(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	msg := createMessage(t, s, store.MessageData{
		SenderID: "admin", Subject: "hi", RecipientIDs: []string{"alice"},
	})

	// Mutating returned values must not affect stored data.
	msg.Subject = "tampered"
	msg.RecipientIDs[0] = "mallory"

	got, err := s.GetMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if got.Subject != "hi" || got.RecipientIDs[0] != "alice" {
		t.Errorf("stored message mutated: %+v", got)
	}

	st, err := s.GetState(ctx, msg.ID, "alice")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	st.Read = true
	st.Priority = store.PriorityHigh

	again, err := s.GetState(ctx, msg.ID, "alice")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if again.Read || again.Priority != store.PriorityNormal {
		t.Errorf("stored state mutated: %+v", again)
	}
}
