package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rucko24/technovationslp-backend/store"
)

// stateRow maps a message_states table row for sqlx scanning.
type stateRow struct {
	MessageID          string     `db:"message_id"`
	RecipientID        string     `db:"recipient_id"`
	Read               bool       `db:"read"`
	Priority           string     `db:"priority"`
	DeliveredConfirmed bool       `db:"delivered_confirmed"`
	DeliveredAt        *time.Time `db:"delivered_at"`
	ReadConfirmed      bool       `db:"read_confirmed"`
	ReadConfirmedAt    *time.Time `db:"read_confirmed_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

func (r *stateRow) toState() *store.RecipientState {
	return &store.RecipientState{
		MessageID:          r.MessageID,
		RecipientID:        r.RecipientID,
		Read:               r.Read,
		Priority:           store.Priority(r.Priority),
		DeliveredConfirmed: r.DeliveredConfirmed,
		DeliveredAt:        r.DeliveredAt,
		ReadConfirmed:      r.ReadConfirmed,
		ReadConfirmedAt:    r.ReadConfirmedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

const stateColumns = `message_id, recipient_id, read, priority,
       delivered_confirmed, delivered_at, read_confirmed, read_confirmed_at, updated_at`

func (s *Store) validatePair(messageID, recipientID string) error {
	if _, err := uuid.Parse(messageID); err != nil {
		return store.ErrInvalidID
	}
	if recipientID == "" {
		return store.ErrInvalidID
	}
	return nil
}

// GetState retrieves the state for one (message, recipient) pair.
func (s *Store) GetState(ctx context.Context, messageID, recipientID string) (*store.RecipientState, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if err := s.validatePair(messageID, recipientID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE message_id = $1 AND recipient_id = $2
	`, stateColumns, s.opts.statesTable)

	var row stateRow
	if err := s.db.GetContext(ctx, &row, query, messageID, recipientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get state: %w", err)
	}
	return row.toState(), nil
}

// ListStates returns all recipient states for a message.
func (s *Store) ListStates(ctx context.Context, messageID string) ([]*store.RecipientState, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(messageID); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE message_id = $1
		ORDER BY recipient_id
	`, stateColumns, s.opts.statesTable)

	var rows []stateRow
	if err := s.db.SelectContext(ctx, &rows, query, messageID); err != nil {
		return nil, fmt.Errorf("list states: %w", err)
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}

	out := make([]*store.RecipientState, len(rows))
	for i := range rows {
		out[i] = rows[i].toState()
	}
	return out, nil
}

// ListByRecipient returns a recipient's inbox entries joined with their
// messages, newest first.
func (s *Store) ListByRecipient(ctx context.Context, recipientID string) ([]*store.InboxEntry, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if recipientID == "" {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT m.id, m.sender_id, m.sender_name, m.sender_image, m.subject, m.body,
		       m.thread_id, m.recipient_ids, m.attachments, m.created_at,
		       st.message_id AS st_message_id, st.recipient_id AS st_recipient_id,
		       st.read, st.priority, st.delivered_confirmed, st.delivered_at,
		       st.read_confirmed, st.read_confirmed_at, st.updated_at
		FROM %s st
		JOIN %s m ON m.id = st.message_id
		WHERE st.recipient_id = $1
		ORDER BY m.created_at DESC
	`, s.opts.statesTable, s.opts.messagesTable)

	type joinedRow struct {
		messageRow
		StMessageID   string `db:"st_message_id"`
		StRecipientID string `db:"st_recipient_id"`
		stateRow
	}

	var rows []joinedRow
	if err := s.db.SelectContext(ctx, &rows, query, recipientID); err != nil {
		return nil, fmt.Errorf("list by recipient: %w", err)
	}

	out := make([]*store.InboxEntry, len(rows))
	for i := range rows {
		rows[i].stateRow.MessageID = rows[i].StMessageID
		rows[i].stateRow.RecipientID = rows[i].StRecipientID
		out[i] = &store.InboxEntry{
			Message: rows[i].messageRow.toMessage(),
			State:   rows[i].stateRow.toState(),
		}
	}
	return out, nil
}

// CountByRecipient returns total and unread counts in a single query.
func (s *Store) CountByRecipient(ctx context.Context, recipientID string) (*store.StateCounts, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if recipientID == "" {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE NOT read) AS unread
		FROM %s
		WHERE recipient_id = $1
	`, s.opts.statesTable)

	var counts struct {
		Total  int64 `db:"total"`
		Unread int64 `db:"unread"`
	}
	if err := s.db.GetContext(ctx, &counts, query, recipientID); err != nil {
		return nil, fmt.Errorf("count by recipient: %w", err)
	}
	return &store.StateCounts{Total: counts.Total, Unread: counts.Unread}, nil
}

// SetRead sets the read flag. Confirmation columns are never touched here.
func (s *Store) SetRead(ctx context.Context, messageID, recipientID string, read bool) (*store.RecipientState, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET read = $3, updated_at = NOW()
		WHERE message_id = $1 AND recipient_id = $2
		RETURNING %s
	`, s.opts.statesTable, stateColumns)
	return s.updateState(ctx, query, messageID, recipientID, read)
}

// SetPriority sets the priority level.
func (s *Store) SetPriority(ctx context.Context, messageID, recipientID string, priority store.Priority) (*store.RecipientState, error) {
	if !store.IsValidPriority(priority) {
		return nil, store.ErrInvalidPriority
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET priority = $3, updated_at = NOW()
		WHERE message_id = $1 AND recipient_id = $2
		RETURNING %s
	`, s.opts.statesTable, stateColumns)
	return s.updateState(ctx, query, messageID, recipientID, string(priority))
}

// ConfirmDelivered records delivery confirmation. COALESCE keeps the first
// timestamp on replay, so the update is idempotent without a read first.
func (s *Store) ConfirmDelivered(ctx context.Context, messageID, recipientID string, at time.Time) (*store.RecipientState, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET delivered_confirmed = TRUE,
		    delivered_at = COALESCE(delivered_at, $3),
		    updated_at = NOW()
		WHERE message_id = $1 AND recipient_id = $2
		RETURNING %s
	`, s.opts.statesTable, stateColumns)
	return s.updateState(ctx, query, messageID, recipientID, at.UTC())
}

// ConfirmRead records read confirmation, sets the read flag, and stamps an
// unconfirmed delivery with the same time.
func (s *Store) ConfirmRead(ctx context.Context, messageID, recipientID string, at time.Time) (*store.RecipientState, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET read = TRUE,
		    read_confirmed = TRUE,
		    read_confirmed_at = COALESCE(read_confirmed_at, $3),
		    delivered_confirmed = TRUE,
		    delivered_at = COALESCE(delivered_at, $3),
		    updated_at = NOW()
		WHERE message_id = $1 AND recipient_id = $2
		RETURNING %s
	`, s.opts.statesTable, stateColumns)
	return s.updateState(ctx, query, messageID, recipientID, at.UTC())
}

func (s *Store) updateState(ctx context.Context, query, messageID, recipientID string, arg any) (*store.RecipientState, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if err := s.validatePair(messageID, recipientID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var row stateRow
	if err := s.db.GetContext(ctx, &row, query, messageID, recipientID, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("update state: %w", err)
	}
	return row.toState(), nil
}
