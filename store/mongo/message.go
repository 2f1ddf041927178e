package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/rucko24/technovationslp-backend/store"
)

// document is the single-document message representation. Recipient
// states are embedded so the fan-out is one atomic insert.
type document struct {
	ID           string     `bson:"_id"`
	SenderID     string     `bson:"sender_id"`
	SenderName   string     `bson:"sender_name"`
	SenderImage  string     `bson:"sender_image,omitempty"`
	Subject      string     `bson:"subject"`
	Body         string     `bson:"body"`
	ThreadID     string     `bson:"thread_id,omitempty"`
	RecipientIDs []string   `bson:"recipient_ids"`
	Attachments  []string   `bson:"attachments,omitempty"`
	CreatedAt    time.Time  `bson:"created_at"`
	States       []stateDoc `bson:"states"`
}

// stateDoc is an embedded per-recipient state.
type stateDoc struct {
	RecipientID        string     `bson:"recipient_id"`
	Read               bool       `bson:"read"`
	Priority           string     `bson:"priority"`
	DeliveredConfirmed bool       `bson:"delivered_confirmed"`
	DeliveredAt        *time.Time `bson:"delivered_at,omitempty"`
	ReadConfirmed      bool       `bson:"read_confirmed"`
	ReadConfirmedAt    *time.Time `bson:"read_confirmed_at,omitempty"`
	UpdatedAt          time.Time  `bson:"updated_at"`
}

func (d *document) toMessage() *store.Message {
	return &store.Message{
		ID:           d.ID,
		SenderID:     d.SenderID,
		SenderName:   d.SenderName,
		SenderImage:  d.SenderImage,
		Subject:      d.Subject,
		Body:         d.Body,
		ThreadID:     d.ThreadID,
		RecipientIDs: d.RecipientIDs,
		Attachments:  d.Attachments,
		CreatedAt:    d.CreatedAt,
	}
}

func (d *stateDoc) toState(messageID string) *store.RecipientState {
	return &store.RecipientState{
		MessageID:          messageID,
		RecipientID:        d.RecipientID,
		Read:               d.Read,
		Priority:           store.Priority(d.Priority),
		DeliveredConfirmed: d.DeliveredConfirmed,
		DeliveredAt:        d.DeliveredAt,
		ReadConfirmed:      d.ReadConfirmed,
		ReadConfirmedAt:    d.ReadConfirmedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

// CreateMessage inserts the message and its embedded recipient states as
// a single document. Single-document writes are atomic in MongoDB, so
// either every recipient gets a state or the insert fails whole.
func (s *Store) CreateMessage(ctx context.Context, data store.MessageData) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if len(data.RecipientIDs) == 0 {
		return nil, store.ErrEmptyRecipients
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	now := time.Now().UTC()
	seen := make(map[string]bool, len(data.RecipientIDs))
	states := make([]stateDoc, 0, len(data.RecipientIDs))
	for _, rid := range data.RecipientIDs {
		if seen[rid] {
			return nil, store.ErrDuplicateEntry
		}
		seen[rid] = true
		states = append(states, stateDoc{
			RecipientID: rid,
			Priority:    string(store.PriorityNormal),
			UpdatedAt:   now,
		})
	}

	doc := document{
		ID:           uuid.New().String(),
		SenderID:     data.SenderID,
		SenderName:   data.SenderName,
		SenderImage:  data.SenderImage,
		Subject:      data.Subject,
		Body:         data.Body,
		ThreadID:     data.ThreadID,
		RecipientIDs: data.RecipientIDs,
		Attachments:  data.Attachments,
		CreatedAt:    now,
		States:       states,
	}

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, store.ErrDuplicateEntry
		}
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return doc.toMessage(), nil
}

// GetMessage retrieves a message by ID.
func (s *Store) GetMessage(ctx context.Context, id string) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var doc document
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return doc.toMessage(), nil
}

// DeleteMessage removes a message document and with it every embedded state.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if id == "" {
		return store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
