package repository

import (
	"context"

	"github.com/m-mizutani/burrow/pkg/model"
)

// Repository defines the persistence interface for conversation turns and
// long-term memory records. Turn ordering per session key must be preserved;
// serializing concurrent appends to the same key is the caller's job.
type Repository interface {
	// PutTurn appends a turn to the session's turn log
	PutTurn(ctx context.Context, key model.SessionKey, turn *model.ConversationTurn) error

	// ListTurns retrieves the session's turn log in chronological order
	ListTurns(ctx context.Context, key model.SessionKey) ([]*model.ConversationTurn, error)

	// DeleteTurns removes the given turns from the session's log
	DeleteTurns(ctx context.Context, key model.SessionKey, ids []model.TurnID) error

	// PutRecord saves a long-term memory record
	PutRecord(ctx context.Context, record *model.MemoryRecord) error

	// ListRecords retrieves the actor's records, newest first, including
	// expired ones; expiry filtering is the caller's job
	ListRecords(ctx context.Context, actorID string) ([]*model.MemoryRecord, error)

	// DeleteRecord removes a record
	DeleteRecord(ctx context.Context, id model.RecordID) error
}
