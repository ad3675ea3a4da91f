package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
)

const (
	turnCollection   = "turns"
	recordCollection = "memories"
)

// Firestore is the durable Repository backend. One document per turn and per
// memory record; session scoping is by document fields, so a composite index
// on (actor_id, thread_id, created_at) is required for the turn query.
type Firestore struct {
	client *firestore.Client
}

// NewFirestore creates a new Firestore-backed repository
func NewFirestore(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID), goerr.V("database", databaseID))
	}

	return &Firestore{client: client}, nil
}

// Close releases the underlying client
func (f *Firestore) Close() error {
	return f.client.Close()
}

type turnDoc struct {
	ActorID   string    `firestore:"actor_id"`
	ThreadID  string    `firestore:"thread_id"`
	Role      string    `firestore:"role"`
	Content   string    `firestore:"content"`
	CreatedAt time.Time `firestore:"created_at"`
}

type recordDoc struct {
	ActorID   string    `firestore:"actor_id"`
	Fact      string    `firestore:"fact"`
	CreatedAt time.Time `firestore:"created_at"`
	ExpiresAt time.Time `firestore:"expires_at"`
}

func (f *Firestore) PutTurn(ctx context.Context, key model.SessionKey, turn *model.ConversationTurn) error {
	doc := turnDoc{
		ActorID:   key.ActorID,
		ThreadID:  key.ThreadID,
		Role:      string(turn.Role),
		Content:   turn.Content,
		CreatedAt: turn.CreatedAt,
	}

	if _, err := f.client.Collection(turnCollection).Doc(string(turn.ID)).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put turn", goerr.V("session", key.String()))
	}
	return nil
}

func (f *Firestore) ListTurns(ctx context.Context, key model.SessionKey) ([]*model.ConversationTurn, error) {
	iter := f.client.Collection(turnCollection).
		Where("actor_id", "==", key.ActorID).
		Where("thread_id", "==", key.ThreadID).
		OrderBy("created_at", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var turns []*model.ConversationTurn
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate turns", goerr.V("session", key.String()))
		}

		var doc turnDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode turn", goerr.V("doc", snap.Ref.ID))
		}

		turns = append(turns, &model.ConversationTurn{
			ID:        model.TurnID(snap.Ref.ID),
			Role:      model.Role(doc.Role),
			Content:   doc.Content,
			CreatedAt: doc.CreatedAt,
		})
	}

	return turns, nil
}

func (f *Firestore) DeleteTurns(ctx context.Context, key model.SessionKey, ids []model.TurnID) error {
	bw := f.client.BulkWriter(ctx)
	for _, id := range ids {
		if _, err := bw.Delete(f.client.Collection(turnCollection).Doc(string(id))); err != nil {
			return goerr.Wrap(err, "failed to schedule turn deletion", goerr.V("turn", id))
		}
	}
	bw.End()
	return nil
}

func (f *Firestore) PutRecord(ctx context.Context, record *model.MemoryRecord) error {
	doc := recordDoc{
		ActorID:   record.ActorID,
		Fact:      record.Fact,
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}

	if _, err := f.client.Collection(recordCollection).Doc(string(record.ID)).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put memory record", goerr.V("actor", record.ActorID))
	}
	return nil
}

func (f *Firestore) ListRecords(ctx context.Context, actorID string) ([]*model.MemoryRecord, error) {
	iter := f.client.Collection(recordCollection).
		Where("actor_id", "==", actorID).
		OrderBy("created_at", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var records []*model.MemoryRecord
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate memory records", goerr.V("actor", actorID))
		}

		var doc recordDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode memory record", goerr.V("doc", snap.Ref.ID))
		}

		records = append(records, &model.MemoryRecord{
			ID:        model.RecordID(snap.Ref.ID),
			ActorID:   doc.ActorID,
			Fact:      doc.Fact,
			CreatedAt: doc.CreatedAt,
			ExpiresAt: doc.ExpiresAt,
		})
	}

	return records, nil
}

func (f *Firestore) DeleteRecord(ctx context.Context, id model.RecordID) error {
	if _, err := f.client.Collection(recordCollection).Doc(string(id)).Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete memory record", goerr.V("record", id))
	}
	return nil
}
