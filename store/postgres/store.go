// Package postgres provides a PostgreSQL implementation of store.Store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jmoiron/sqlx"

	"github.com/rucko24/technovationslp-backend/store"
)

// Compile-time check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL.
//
// Messages live in one table and per-recipient states in another. The
// send fan-out inserts into both inside a single transaction, and state
// mutations use conditional UPDATEs, so no external locking is needed.
type Store struct {
	db        *sqlx.DB
	opts      *options
	connected int32
	logger    *slog.Logger
}

// New creates a new PostgreSQL store with the provided database connection.
// Call Connect() to initialize the schema and indexes.
func New(db *sqlx.DB, opts ...Option) *Store {
	o := newOptions(opts...)
	return &Store{
		db:     db,
		opts:   o,
		logger: o.logger,
	}
}

// NewFromDB creates a new PostgreSQL store from a standard sql.DB connection.
// This wraps the sql.DB with sqlx for enhanced functionality.
func NewFromDB(db *sql.DB, opts ...Option) *Store {
	return New(sqlx.NewDb(db, "postgres"), opts...)
}

// Connect initializes the schema and indexes.
func (s *Store) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}

	if s.db == nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("postgres: db is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("postgres ping: %w", err)
	}

	if err := s.ensureSchema(ctx); err != nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("ensure schema: %w", err)
	}

	s.logger.Info("connected to PostgreSQL",
		"messages_table", s.opts.messagesTable,
		"states_table", s.opts.statesTable)
	return nil
}

// Close marks the store as disconnected.
// The caller is responsible for closing the database connection.
func (s *Store) Close(ctx context.Context) error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil
	}
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

// ensureSchema creates the required tables and indexes.
func (s *Store) ensureSchema(ctx context.Context) error {
	createMessages := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			sender_id VARCHAR(255) NOT NULL,
			sender_name TEXT NOT NULL DEFAULT '',
			sender_image TEXT NOT NULL DEFAULT '',
			subject TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			thread_id VARCHAR(255) NOT NULL DEFAULT '',
			recipient_ids TEXT[] NOT NULL DEFAULT '{}',
			attachments TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, s.opts.messagesTable)

	if _, err := s.db.ExecContext(ctx, createMessages); err != nil {
		return fmt.Errorf("create messages table: %w", err)
	}

	createStates := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			message_id UUID NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			recipient_id VARCHAR(255) NOT NULL,
			read BOOLEAN NOT NULL DEFAULT FALSE,
			priority VARCHAR(16) NOT NULL DEFAULT 'normal',
			delivered_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
			delivered_at TIMESTAMPTZ,
			read_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
			read_confirmed_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (message_id, recipient_id)
		)
	`, s.opts.statesTable, s.opts.messagesTable)

	if _, err := s.db.ExecContext(ctx, createStates); err != nil {
		return fmt.Errorf("create states table: %w", err)
	}

	indexes := []string{
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_sender ON %s(sender_id)`, s.opts.messagesTable, s.opts.messagesTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_created ON %s(created_at DESC)`, s.opts.messagesTable, s.opts.messagesTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_thread ON %s(thread_id) WHERE thread_id <> ''`, s.opts.messagesTable, s.opts.messagesTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_recipient ON %s(recipient_id)`, s.opts.statesTable, s.opts.statesTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_recipient_read ON %s(recipient_id, read)`, s.opts.statesTable, s.opts.statesTable),
	}

	for _, idx := range indexes {
		if _, err := s.db.ExecContext(ctx, idx); err != nil {
			s.logger.Warn("failed to create index", "error", err, "sql", idx)
		}
	}

	return nil
}

// checkConnected returns error if not connected.
func (s *Store) checkConnected() error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	return nil
}
