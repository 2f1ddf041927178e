// Package postgres provides a PostgreSQL implementation of deliverable.Store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/rucko24/technovationslp-backend/deliverable"
	"github.com/rucko24/technovationslp-backend/store"
)

// Compile-time check
var _ deliverable.Store = (*Store)(nil)

// Default configuration values.
const (
	DefaultTable   = "deliverables"
	DefaultTimeout = 10 * time.Second
)

// options holds PostgreSQL store configuration.
type options struct {
	table   string
	timeout time.Duration
	logger  *slog.Logger
}

func newOptions(opts ...Option) *options {
	o := &options{
		table:   DefaultTable,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a PostgreSQL store.
type Option func(*options)

// WithTable sets the deliverables table name.
func WithTable(name string) Option {
	return func(o *options) {
		if name != "" {
			o.table = name
		}
	}
}

// WithTimeout sets the operation timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Store implements deliverable.Store using PostgreSQL.
type Store struct {
	db        *sqlx.DB
	opts      *options
	connected int32
	logger    *slog.Logger
}

// New creates a new PostgreSQL deliverable store.
// Call Connect() to initialize the schema.
func New(db *sqlx.DB, opts ...Option) *Store {
	o := newOptions(opts...)
	return &Store{
		db:     db,
		opts:   o,
		logger: o.logger,
	}
}

// NewFromDB creates a new PostgreSQL deliverable store from a standard sql.DB.
func NewFromDB(db *sql.DB, opts ...Option) *Store {
	return New(sqlx.NewDb(db, "postgres"), opts...)
}

// Connect initializes the schema.
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

	s.logger.Info("connected to PostgreSQL", "table", s.opts.table)
	return nil
}

// Close marks the store as disconnected.
// The caller is responsible for closing the database connection.
func (s *Store) Close(_ context.Context) error {
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			batch_id VARCHAR(255) NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			due_date TIMESTAMPTZ,
			resource_refs TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, s.opts.table)

	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create deliverables table: %w", err)
	}

	idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_batch ON %s(batch_id, created_at DESC)`,
		s.opts.table, s.opts.table)
	if _, err := s.db.ExecContext(ctx, idx); err != nil {
		s.logger.Warn("failed to create index", "error", err, "sql", idx)
	}

	return nil
}

func (s *Store) checkConnected() error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	return nil
}

// row is the database representation of a deliverable.
type row struct {
	ID           string         `db:"id"`
	BatchID      string         `db:"batch_id"`
	Title        string         `db:"title"`
	Description  string         `db:"description"`
	DueDate      *time.Time     `db:"due_date"`
	ResourceRefs pq.StringArray `db:"resource_refs"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r *row) toDeliverable() *deliverable.Deliverable {
	return &deliverable.Deliverable{
		ID:           r.ID,
		BatchID:      r.BatchID,
		Title:        r.Title,
		Description:  r.Description,
		DueDate:      r.DueDate,
		ResourceRefs: []string(r.ResourceRefs),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// Create persists a new deliverable.
func (s *Store) Create(ctx context.Context, data deliverable.Data) (*deliverable.Deliverable, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	now := time.Now().UTC()
	r := row{
		ID:           uuid.NewString(),
		BatchID:      data.BatchID,
		Title:        data.Title,
		Description:  data.Description,
		DueDate:      data.DueDate,
		ResourceRefs: pq.StringArray(data.ResourceRefs),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, batch_id, title, description, due_date, resource_refs, created_at, updated_at)
		VALUES (:id, :batch_id, :title, :description, :due_date, :resource_refs, :created_at, :updated_at)
	`, s.opts.table)

	if _, err := s.db.NamedExecContext(ctx, query, r); err != nil {
		return nil, fmt.Errorf("insert deliverable: %w", err)
	}
	return r.toDeliverable(), nil
}

// Get retrieves a deliverable by ID.
func (s *Store) Get(ctx context.Context, id string) (*deliverable.Deliverable, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var r row
	query := fmt.Sprintf(`SELECT * FROM %s WHERE id = $1`, s.opts.table)
	if err := s.db.GetContext(ctx, &r, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("select deliverable: %w", err)
	}
	return r.toDeliverable(), nil
}

// Update replaces the mutable fields of a deliverable.
func (s *Store) Update(ctx context.Context, id string, data deliverable.Data) (*deliverable.Deliverable, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		UPDATE %s
		SET batch_id = $2, title = $3, description = $4, due_date = $5,
		    resource_refs = $6, updated_at = $7
		WHERE id = $1
		RETURNING *
	`, s.opts.table)

	var r row
	err := s.db.GetContext(ctx, &r, query,
		id, data.BatchID, data.Title, data.Description, data.DueDate,
		pq.StringArray(data.ResourceRefs), time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("update deliverable: %w", err)
	}
	return r.toDeliverable(), nil
}

// ListByBatch returns all deliverables for a batch, newest first.
func (s *Store) ListByBatch(ctx context.Context, batchID string) ([]*deliverable.Deliverable, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var rows []row
	query := fmt.Sprintf(`SELECT * FROM %s WHERE batch_id = $1 ORDER BY created_at DESC`, s.opts.table)
	if err := s.db.SelectContext(ctx, &rows, query, batchID); err != nil {
		return nil, fmt.Errorf("select deliverables: %w", err)
	}

	result := make([]*deliverable.Deliverable, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toDeliverable())
	}
	return result, nil
}

// Delete removes a deliverable.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.opts.table)
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete deliverable: %w", err)
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
