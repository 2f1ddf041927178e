package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/rucko24/technovationslp-backend/store"
)

// findDocument loads the full document for a message ID.
func (s *Store) findDocument(ctx context.Context, messageID string) (*document, error) {
	var doc document
	err := s.collection.FindOne(ctx, bson.M{"_id": messageID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find message: %w", err)
	}
	return &doc, nil
}

// pickState extracts one recipient's embedded state from a document.
func pickState(doc *document, recipientID string) (*store.RecipientState, error) {
	for i := range doc.States {
		if doc.States[i].RecipientID == recipientID {
			return doc.States[i].toState(doc.ID), nil
		}
	}
	return nil, store.ErrNotFound
}

// GetState retrieves the state for one (message, recipient) pair.
func (s *Store) GetState(ctx context.Context, messageID, recipientID string) (*store.RecipientState, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if messageID == "" || recipientID == "" {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	doc, err := s.findDocument(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return pickState(doc, recipientID)
}

// ListStates returns all recipient states for a message.
func (s *Store) ListStates(ctx context.Context, messageID string) ([]*store.RecipientState, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if messageID == "" {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	doc, err := s.findDocument(ctx, messageID)
	if err != nil {
		return nil, err
	}

	out := make([]*store.RecipientState, len(doc.States))
	for i := range doc.States {
		out[i] = doc.States[i].toState(doc.ID)
	}
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

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	findOpts := mongoopts.Find().SetSort(bson.D{bson.E{Key: "created_at", Value: -1}})
	cursor, err := s.collection.Find(ctx, bson.M{"states.recipient_id": recipientID}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("list by recipient: %w", err)
	}
	defer cursor.Close(ctx)

	var out []*store.InboxEntry
	for cursor.Next(ctx) {
		var doc document
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		st, err := pickState(&doc, recipientID)
		if err != nil {
			continue
		}
		out = append(out, &store.InboxEntry{Message: doc.toMessage(), State: st})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor: %w", err)
	}
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

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	total, err := s.collection.CountDocuments(ctx, bson.M{"states.recipient_id": recipientID})
	if err != nil {
		return nil, fmt.Errorf("count total: %w", err)
	}

	unread, err := s.collection.CountDocuments(ctx, bson.M{
		"states": bson.M{"$elemMatch": bson.M{"recipient_id": recipientID, "read": false}},
	})
	if err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}

	return &store.StateCounts{Total: total, Unread: unread}, nil
}

// SetRead sets the read flag via the positional operator.
func (s *Store) SetRead(ctx context.Context, messageID, recipientID string, read bool) (*store.RecipientState, error) {
	update := bson.M{"$set": bson.M{
		"states.$.read":       read,
		"states.$.updated_at": time.Now().UTC(),
	}}
	return s.updateState(ctx, messageID, recipientID, update)
}

// SetPriority sets the priority level via the positional operator.
func (s *Store) SetPriority(ctx context.Context, messageID, recipientID string, priority store.Priority) (*store.RecipientState, error) {
	if !store.IsValidPriority(priority) {
		return nil, store.ErrInvalidPriority
	}
	update := bson.M{"$set": bson.M{
		"states.$.priority":   string(priority),
		"states.$.updated_at": time.Now().UTC(),
	}}
	return s.updateState(ctx, messageID, recipientID, update)
}

// ConfirmDelivered records delivery confirmation. The $ifNull keeps the
// first timestamp, so a replay modifies nothing meaningful.
func (s *Store) ConfirmDelivered(ctx context.Context, messageID, recipientID string, at time.Time) (*store.RecipientState, error) {
	update := confirmPipeline(recipientID, bson.M{
		"delivered_confirmed": true,
		"delivered_at":        bson.M{"$ifNull": bson.A{"$$st.delivered_at", at.UTC()}},
		"updated_at":          time.Now().UTC(),
	})
	return s.updateState(ctx, messageID, recipientID, update)
}

// ConfirmRead records read confirmation, sets the read flag, and stamps
// an unconfirmed delivery with the same time.
func (s *Store) ConfirmRead(ctx context.Context, messageID, recipientID string, at time.Time) (*store.RecipientState, error) {
	t := at.UTC()
	update := confirmPipeline(recipientID, bson.M{
		"read":                true,
		"read_confirmed":      true,
		"read_confirmed_at":   bson.M{"$ifNull": bson.A{"$$st.read_confirmed_at", t}},
		"delivered_confirmed": true,
		"delivered_at":        bson.M{"$ifNull": bson.A{"$$st.delivered_at", t}},
		"updated_at":          time.Now().UTC(),
	})
	return s.updateState(ctx, messageID, recipientID, update)
}

// confirmPipeline builds an aggregation pipeline update that merges the
// given fields into the one matching embedded state. Pipeline updates
// let $ifNull preserve already-set confirmation timestamps atomically.
func confirmPipeline(recipientID string, fields bson.M) mongo.Pipeline {
	return mongo.Pipeline{
		bson.D{bson.E{Key: "$set", Value: bson.M{
			"states": bson.M{
				"$map": bson.M{
					"input": "$states",
					"as":    "st",
					"in": bson.M{
						"$cond": bson.A{
							bson.M{"$eq": bson.A{"$$st.recipient_id", recipientID}},
							bson.M{"$mergeObjects": bson.A{"$$st", fields}},
							"$$st",
						},
					},
				},
			},
		}}},
	}
}

// updateState applies the update to the state row and reads back the result.
func (s *Store) updateState(ctx context.Context, messageID, recipientID string, update any) (*store.RecipientState, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if messageID == "" || recipientID == "" {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	filter := bson.M{"_id": messageID, "states.recipient_id": recipientID}
	res, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("update state: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, store.ErrNotFound
	}

	doc, err := s.findDocument(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return pickState(doc, recipientID)
}
