// Package memory provides an in-memory Store implementation for testing.
// This store is not suitable for production use - data is not persisted.
package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rucko24/technovationslp-backend/store"
)

// Compile-time check
var _ store.Store = (*Store)(nil)

// entry holds an immutable message and its mutable recipient states.
type entry struct {
	msg    *store.Message
	states map[string]*store.RecipientState // keyed by recipient ID
}

// Store implements store.Store with in-memory storage.
// Thread-safe for concurrent use. Not suitable for production.
type Store struct {
	messages  sync.Map // map[string]*entry
	msgLocks  sync.Map // map[string]*sync.Mutex (per-message locks for mutations)
	connected int32
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{}
}

// getMsgLock returns the mutex for a message ID, creating one if needed.
// Uses LoadOrStore for atomic get-or-create.
func (s *Store) getMsgLock(id string) *sync.Mutex {
	lock, _ := s.msgLocks.LoadOrStore(id, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// Connect marks the store as connected.
func (s *Store) Connect(_ context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}
	return nil
}

// Close marks the store as disconnected.
func (s *Store) Close(_ context.Context) error {
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

func (s *Store) checkConnected() error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	return nil
}

// =============================================================================
// Message Operations
// =============================================================================

// CreateMessage creates a message and its recipient states. The entry is
// built completely before it is published to the map, so readers never
// observe a partial fan-out.
func (s *Store) CreateMessage(ctx context.Context, data store.MessageData) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if len(data.RecipientIDs) == 0 {
		return nil, store.ErrEmptyRecipients
	}

	now := time.Now().UTC()
	msg := &store.Message{
		ID:           uuid.New().String(),
		SenderID:     data.SenderID,
		SenderName:   data.SenderName,
		SenderImage:  data.SenderImage,
		Subject:      data.Subject,
		Body:         data.Body,
		ThreadID:     data.ThreadID,
		RecipientIDs: append([]string(nil), data.RecipientIDs...),
		Attachments:  append([]string(nil), data.Attachments...),
		CreatedAt:    now,
	}

	states := make(map[string]*store.RecipientState, len(data.RecipientIDs))
	for _, rid := range data.RecipientIDs {
		if _, ok := states[rid]; ok {
			return nil, store.ErrDuplicateEntry
		}
		states[rid] = &store.RecipientState{
			MessageID:   msg.ID,
			RecipientID: rid,
			Priority:    store.PriorityNormal,
			UpdatedAt:   now,
		}
	}

	s.messages.Store(msg.ID, &entry{msg: msg, states: states})
	return cloneMessage(msg), nil
}

// GetMessage retrieves a message by ID.
func (s *Store) GetMessage(ctx context.Context, id string) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, store.ErrInvalidID
	}
	e, ok := s.load(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneMessage(e.msg), nil
}

// DeleteMessage removes a message and all its recipient states.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if id == "" {
		return store.ErrInvalidID
	}
	if _, ok := s.messages.LoadAndDelete(id); !ok {
		return store.ErrNotFound
	}
	s.msgLocks.Delete(id)
	return nil
}

// =============================================================================
// State Read Operations
// =============================================================================

// GetState retrieves the state for one (message, recipient) pair.
func (s *Store) GetState(ctx context.Context, messageID, recipientID string) (*store.RecipientState, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if messageID == "" || recipientID == "" {
		return nil, store.ErrInvalidID
	}
	e, ok := s.load(messageID)
	if !ok {
		return nil, store.ErrNotFound
	}

	lock := s.getMsgLock(messageID)
	lock.Lock()
	defer lock.Unlock()

	st, ok := e.states[recipientID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneState(st), nil
}

// ListStates returns all recipient states for a message.
func (s *Store) ListStates(ctx context.Context, messageID string) ([]*store.RecipientState, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if messageID == "" {
		return nil, store.ErrInvalidID
	}
	e, ok := s.load(messageID)
	if !ok {
		return nil, store.ErrNotFound
	}

	lock := s.getMsgLock(messageID)
	lock.Lock()
	defer lock.Unlock()

	out := make([]*store.RecipientState, 0, len(e.states))
	for _, st := range e.states {
		out = append(out, cloneState(st))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecipientID < out[j].RecipientID })
	return out, nil
}

// ListByRecipient returns a recipient's inbox entries, newest first.
func (s *Store) ListByRecipient(ctx context.Context, recipientID string) ([]*store.InboxEntry, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if recipientID == "" {
		return nil, store.ErrInvalidID
	}

	var out []*store.InboxEntry
	s.messages.Range(func(_, v any) bool {
		e := v.(*entry)
		lock := s.getMsgLock(e.msg.ID)
		lock.Lock()
		st, ok := e.states[recipientID]
		if ok {
			out = append(out, &store.InboxEntry{
				Message: cloneMessage(e.msg),
				State:   cloneState(st),
			})
		}
		lock.Unlock()
		return true
	})

	sort.Slice(out, func(i, j int) bool {
		return out[i].Message.CreatedAt.After(out[j].Message.CreatedAt)
	})
	return out, nil
}

// CountByRecipient returns total and unread counts for a recipient.
func (s *Store) CountByRecipient(ctx context.Context, recipientID string) (*store.StateCounts, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if recipientID == "" {
		return nil, store.ErrInvalidID
	}

	counts := &store.StateCounts{}
	s.messages.Range(func(_, v any) bool {
		e := v.(*entry)
		lock := s.getMsgLock(e.msg.ID)
		lock.Lock()
		if st, ok := e.states[recipientID]; ok {
			counts.Total++
			if !st.Read {
				counts.Unread++
			}
		}
		lock.Unlock()
		return true
	})
	return counts, nil
}

// =============================================================================
// State Mutations
// =============================================================================

// SetRead sets the read flag. Confirmation fields are left untouched.
func (s *Store) SetRead(ctx context.Context, messageID, recipientID string, read bool) (*store.RecipientState, error) {
	return s.mutate(messageID, recipientID, func(st *store.RecipientState) error {
		st.Read = read
		return nil
	})
}

// SetPriority sets the priority level.
func (s *Store) SetPriority(ctx context.Context, messageID, recipientID string, priority store.Priority) (*store.RecipientState, error) {
	if !store.IsValidPriority(priority) {
		return nil, store.ErrInvalidPriority
	}
	return s.mutate(messageID, recipientID, func(st *store.RecipientState) error {
		st.Priority = priority
		return nil
	})
}

// ConfirmDelivered records delivery confirmation. Replays keep the
// original timestamp.
func (s *Store) ConfirmDelivered(ctx context.Context, messageID, recipientID string, at time.Time) (*store.RecipientState, error) {
	return s.mutate(messageID, recipientID, func(st *store.RecipientState) error {
		if st.DeliveredConfirmed {
			return nil
		}
		t := at.UTC()
		st.DeliveredConfirmed = true
		st.DeliveredAt = &t
		return nil
	})
}

// ConfirmRead records read confirmation and sets the read flag. An
// unconfirmed delivery is stamped with the same time.
func (s *Store) ConfirmRead(ctx context.Context, messageID, recipientID string, at time.Time) (*store.RecipientState, error) {
	return s.mutate(messageID, recipientID, func(st *store.RecipientState) error {
		st.Read = true
		if st.ReadConfirmed {
			return nil
		}
		t := at.UTC()
		st.ReadConfirmed = true
		st.ReadConfirmedAt = &t
		if !st.DeliveredConfirmed {
			st.DeliveredConfirmed = true
			st.DeliveredAt = &t
		}
		return nil
	})
}

// mutate applies fn to one state row under the per-message lock.
func (s *Store) mutate(messageID, recipientID string, fn func(*store.RecipientState) error) (*store.RecipientState, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if messageID == "" || recipientID == "" {
		return nil, store.ErrInvalidID
	}
	e, ok := s.load(messageID)
	if !ok {
		return nil, store.ErrNotFound
	}

	lock := s.getMsgLock(messageID)
	lock.Lock()
	defer lock.Unlock()

	st, ok := e.states[recipientID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := fn(st); err != nil {
		return nil, err
	}
	st.UpdatedAt = time.Now().UTC()
	return cloneState(st), nil
}

func (s *Store) load(id string) (*entry, bool) {
	v, ok := s.messages.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*entry), true
}

// cloneMessage returns a deep copy so callers cannot mutate stored data.
func cloneMessage(m *store.Message) *store.Message {
	c := *m
	c.RecipientIDs = append([]string(nil), m.RecipientIDs...)
	c.Attachments = append([]string(nil), m.Attachments...)
	return &c
}

func cloneState(st *store.RecipientState) *store.RecipientState {
	c := *st
	if st.DeliveredAt != nil {
		t := *st.DeliveredAt
		c.DeliveredAt = &t
	}
	if st.ReadConfirmedAt != nil {
		t := *st.ReadConfirmedAt
		c.ReadConfirmedAt = &t
	}
	return &c
}
