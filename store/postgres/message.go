package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/rucko24/technovationslp-backend/store"
)

// messageRow maps a messages table row for sqlx scanning.
type messageRow struct {
	ID           string         `db:"id"`
	SenderID     string         `db:"sender_id"`
	SenderName   string         `db:"sender_name"`
	SenderImage  string         `db:"sender_image"`
	Subject      string         `db:"subject"`
	Body         string         `db:"body"`
	ThreadID     string         `db:"thread_id"`
	RecipientIDs pq.StringArray `db:"recipient_ids"`
	Attachments  pq.StringArray `db:"attachments"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (r *messageRow) toMessage() *store.Message {
	return &store.Message{
		ID:           r.ID,
		SenderID:     r.SenderID,
		SenderName:   r.SenderName,
		SenderImage:  r.SenderImage,
		Subject:      r.Subject,
		Body:         r.Body,
		ThreadID:     r.ThreadID,
		RecipientIDs: []string(r.RecipientIDs),
		Attachments:  []string(r.Attachments),
		CreatedAt:    r.CreatedAt,
	}
}

// CreateMessage inserts the message and one state row per recipient in a
// single transaction. On any failure the transaction rolls back, so no
// partial fan-out is ever visible.
func (s *Store) CreateMessage(ctx context.Context, data store.MessageData) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if len(data.RecipientIDs) == 0 {
		return nil, store.ErrEmptyRecipients
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	id := uuid.New().String()

	insertMsg := fmt.Sprintf(`
		INSERT INTO %s (id, sender_id, sender_name, sender_image, subject, body,
		                thread_id, recipient_ids, attachments, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, s.opts.messagesTable)

	_, err = tx.ExecContext(ctx, insertMsg,
		id, data.SenderID, data.SenderName, data.SenderImage, data.Subject, data.Body,
		data.ThreadID, pq.Array(data.RecipientIDs), pq.Array(data.Attachments), now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	insertState := fmt.Sprintf(`
		INSERT INTO %s (message_id, recipient_id, read, priority,
		                delivered_confirmed, read_confirmed, updated_at)
		VALUES ($1, $2, FALSE, $3, FALSE, FALSE, $4)
	`, s.opts.statesTable)

	for _, rid := range data.RecipientIDs {
		if _, err := tx.ExecContext(ctx, insertState, id, rid, store.PriorityNormal, now); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return nil, store.ErrDuplicateEntry
			}
			return nil, fmt.Errorf("insert state for %s: %w", rid, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrTransactionFailed, err)
	}

	return &store.Message{
		ID:           id,
		SenderID:     data.SenderID,
		SenderName:   data.SenderName,
		SenderImage:  data.SenderImage,
		Subject:      data.Subject,
		Body:         data.Body,
		ThreadID:     data.ThreadID,
		RecipientIDs: data.RecipientIDs,
		Attachments:  data.Attachments,
		CreatedAt:    now,
	}, nil
}

// GetMessage retrieves a message by ID.
func (s *Store) GetMessage(ctx context.Context, id string) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT id, sender_id, sender_name, sender_image, subject, body,
		       thread_id, recipient_ids, attachments, created_at
		FROM %s
		WHERE id = $1
	`, s.opts.messagesTable)

	var row messageRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return row.toMessage(), nil
}

// DeleteMessage removes a message. State rows go with it via ON DELETE CASCADE.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.opts.messagesTable)
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
