package messaging

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rucko24/technovationslp-backend/store"
	"github.com/rucko24/technovationslp-backend/store/memory"
)

func TestSendValidation(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	defer svc.Close(ctx)

	mb := svc.Client("sender")

	tests := []struct {
		name    string
		req     SendRequest
		wantErr error
	}{
		{
			name:    "empty recipients",
			req:     SendRequest{Subject: "hi"},
			wantErr: ErrEmptyRecipients,
		},
		{
			name:    "empty subject",
			req:     SendRequest{RecipientIDs: []string{"alice"}},
			wantErr: ErrEmptySubject,
		},
		{
			name: "invalid recipient ID",
			req: SendRequest{
				RecipientIDs: []string{"alice", "bad:recipient"},
				Subject:      "hi",
			},
			wantErr: ErrInvalidRecipient,
		},
		{
			name: "subject too long",
			req: SendRequest{
				RecipientIDs: []string{"alice"},
				Subject:      strings.Repeat("a", DefaultMaxSubjectLength+1),
			},
			wantErr: ErrSubjectTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mb.Send(ctx, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSendLimitsConfigurable(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t,
		WithMaxRecipients(2),
		WithMaxBodySize(10),
	)
	defer svc.Close(ctx)

	mb := svc.Client("sender")

	_, err := mb.Send(ctx, SendRequest{
		RecipientIDs: []string{"a", "b", "c"},
		Subject:      "hi",
	})
	if !errors.Is(err, ErrTooManyRecipients) {
		t.Errorf("expected ErrTooManyRecipients, got %v", err)
	}

	_, err = mb.Send(ctx, SendRequest{
		RecipientIDs: []string{"a"},
		Subject:      "hi",
		Body:         "this body is longer than ten bytes",
	})
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("expected ErrBodyTooLarge, got %v", err)
	}
}

func TestSendDeduplicatesRecipients(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	defer svc.Close(ctx)

	mb := svc.Client("sender")
	msg := mustSend(t, mb, SendRequest{
		RecipientIDs: []string{"alice", "bob", "alice", "alice"},
		Subject:      "dup test",
	})

	if len(msg.RecipientIDs) != 2 {
		t.Fatalf("expected 2 unique recipients, got %d: %v", len(msg.RecipientIDs), msg.RecipientIDs)
	}
	if msg.RecipientIDs[0] != "alice" || msg.RecipientIDs[1] != "bob" {
		t.Errorf("expected first-seen order [alice bob], got %v", msg.RecipientIDs)
	}

	// A single state row exists for the duplicated recipient.
	detail, err := svc.Client("alice").Get(ctx, msg.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(detail.Receivers) != 2 {
		t.Errorf("expected 2 state rows, got %d", len(detail.Receivers))
	}
}

// stubResolver resolves a fixed set of profiles.
type stubResolver struct {
	profiles map[string]*Profile
}

func (r *stubResolver) Resolve(_ context.Context, userID string) (*Profile, error) {
	p, ok := r.profiles[userID]
	if !ok {
		return nil, errors.New("unknown user")
	}
	return p, nil
}

func (r *stubResolver) ResolveBatch(_ context.Context, userIDs []string) ([]*Profile, error) {
	out := make([]*Profile, len(userIDs))
	for i, id := range userIDs {
		out[i] = r.profiles[id]
	}
	return out, nil
}

func TestSendSnapshotsSenderProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("resolved profile is stored on the message", func(t *testing.T) {
		svc := setupTestService(t, WithIdentityResolver(&stubResolver{
			profiles: map[string]*Profile{
				"sender": {UserID: "sender", Name: "Sam Mentor", ImageRef: "s3://avatars/sam"},
			},
		}))
		defer svc.Close(ctx)

		msg := mustSend(t, svc.Client("sender"), SendRequest{
			RecipientIDs: []string{"alice"},
			Subject:      "hello",
		})
		if msg.SenderName != "Sam Mentor" {
			t.Errorf("expected snapshot name 'Sam Mentor', got %q", msg.SenderName)
		}
		if msg.SenderImage != "s3://avatars/sam" {
			t.Errorf("expected snapshot image, got %q", msg.SenderImage)
		}
	})

	t.Run("resolution failure falls back to user ID", func(t *testing.T) {
		svc := setupTestService(t, WithIdentityResolver(&stubResolver{}))
		defer svc.Close(ctx)

		msg := mustSend(t, svc.Client("sender"), SendRequest{
			RecipientIDs: []string{"alice"},
			Subject:      "hello",
		})
		if msg.SenderName != "sender" {
			t.Errorf("expected fallback name 'sender', got %q", msg.SenderName)
		}
	})

	t.Run("no resolver uses user ID", func(t *testing.T) {
		svc := setupTestService(t)
		defer svc.Close(ctx)

		msg := mustSend(t, svc.Client("sender"), SendRequest{
			RecipientIDs: []string{"alice"},
			Subject:      "hello",
		})
		if msg.SenderName != "sender" {
			t.Errorf("expected name 'sender', got %q", msg.SenderName)
		}
	})
}

// recordingPlugin records send hook invocations.
type recordingPlugin struct {
	name        string
	beforeCalls int
	afterCalls  int
	beforeErr   error
}

func (p *recordingPlugin) Name() string                    { return p.name }
func (p *recordingPlugin) Init(context.Context) error      { return nil }
func (p *recordingPlugin) Close(context.Context) error     { return nil }
func (p *recordingPlugin) AfterSend(_ context.Context, _ string, _ *store.Message) error {
	p.afterCalls++
	return nil
}

func (p *recordingPlugin) BeforeSend(_ context.Context, _ string, _ store.MessageData) error {
	p.beforeCalls++
	return p.beforeErr
}

func TestSendPluginHooks(t *testing.T) {
	ctx := context.Background()

	t.Run("hooks run around send", func(t *testing.T) {
		plugin := &recordingPlugin{name: "recorder"}
		svc := setupTestService(t, WithPlugin(plugin))
		defer svc.Close(ctx)

		mustSend(t, svc.Client("sender"), SendRequest{
			RecipientIDs: []string{"alice"},
			Subject:      "hi",
		})
		if plugin.beforeCalls != 1 || plugin.afterCalls != 1 {
			t.Errorf("expected 1 before and 1 after call, got %d/%d",
				plugin.beforeCalls, plugin.afterCalls)
		}
	})

	t.Run("BeforeSend error aborts send", func(t *testing.T) {
		rejected := errors.New("spam detected")
		plugin := &recordingPlugin{name: "filter", beforeErr: rejected}
		svc := setupTestService(t, WithPlugin(plugin))
		defer svc.Close(ctx)

		_, err := svc.Client("sender").Send(ctx, SendRequest{
			RecipientIDs: []string{"alice"},
			Subject:      "hi",
		})
		if !errors.Is(err, rejected) {
			t.Errorf("expected plugin error, got %v", err)
		}
		var pluginErr *PluginError
		if !errors.As(err, &pluginErr) || pluginErr.Plugin != "filter" {
			t.Errorf("expected PluginError from 'filter', got %v", err)
		}

		// Nothing was delivered.
		entries, err := svc.Client("alice").Entries(ctx)
		if err != nil {
			t.Fatalf("entries failed: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("expected empty inbox after aborted send, got %d entries", len(entries))
		}
	})
}

// failingStore wraps a store and fails CreateMessage on demand.
type failingStore struct {
	store.Store
	failCreate error
}

func (s *failingStore) CreateMessage(ctx context.Context, data store.MessageData) (*store.Message, error) {
	if s.failCreate != nil {
		return nil, s.failCreate
	}
	return s.Store.CreateMessage(ctx, data)
}

func TestSendAtomicFanOut(t *testing.T) {
	ctx := context.Background()

	boom := errors.New("storage down")
	wrapped := &failingStore{Store: memory.New(), failCreate: boom}
	svc, err := NewService(WithStore(wrapped))
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	if err := svc.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer svc.Close(ctx)

	_, err = svc.Client("sender").Send(ctx, SendRequest{
		RecipientIDs: []string{"alice", "bob"},
		Subject:      "hi",
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected storage error, got %v", err)
	}

	// The failed send left nothing behind; a retry succeeds cleanly.
	for _, recipient := range []string{"alice", "bob"} {
		stats, err := svc.Client(recipient).Stats(ctx)
		if err != nil {
			t.Fatalf("stats failed: %v", err)
		}
		if stats.Total != 0 {
			t.Errorf("recipient %s should have no entries, got %d", recipient, stats.Total)
		}
	}

	wrapped.failCreate = nil
	msg := mustSend(t, svc.Client("sender"), SendRequest{
		RecipientIDs: []string{"alice", "bob"},
		Subject:      "hi",
	})
	stats, err := svc.Client("alice").Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Total != 1 || stats.Unread != 1 {
		t.Errorf("expected 1 unread entry after retry, got %+v", stats)
	}
	if msg.ID == "" {
		t.Error("expected message ID to be assigned")
	}
}
