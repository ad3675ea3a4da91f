package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/burrow/pkg/repository"
	"github.com/m-mizutani/gt"
)

func TestMemoryTurnsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	key := model.SessionKey{ActorID: "alice", ThreadID: "t1"}

	for i, content := range []string{"first", "second", "third"} {
		turn := &model.ConversationTurn{
			ID:        model.NewTurnID(),
			Role:      model.RoleUser,
			Content:   content,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		gt.NoError(t, repo.PutTurn(ctx, key, turn))
	}

	turns, err := repo.ListTurns(ctx, key)
	gt.NoError(t, err)
	gt.A(t, turns).Length(3)

	// Chronological order is insertion order
	gt.Equal(t, turns[0].Content, "first")
	gt.Equal(t, turns[1].Content, "second")
	gt.Equal(t, turns[2].Content, "third")
}

func TestMemoryTurnsIsolation(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	keyA := model.SessionKey{ActorID: "alice", ThreadID: "t1"}
	keyB := model.SessionKey{ActorID: "alice", ThreadID: "t2"}
	keyC := model.SessionKey{ActorID: "bob", ThreadID: "t1"}

	gt.NoError(t, repo.PutTurn(ctx, keyA, &model.ConversationTurn{ID: model.NewTurnID(), Role: model.RoleUser, Content: "for alice t1"}))

	for _, other := range []model.SessionKey{keyB, keyC} {
		turns, err := repo.ListTurns(ctx, other)
		gt.NoError(t, err)
		gt.A(t, turns).Length(0)
	}
}

func TestMemoryDeleteTurns(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	key := model.SessionKey{ActorID: "alice", ThreadID: "t1"}

	ids := make([]model.TurnID, 3)
	for i := range ids {
		ids[i] = model.NewTurnID()
		gt.NoError(t, repo.PutTurn(ctx, key, &model.ConversationTurn{ID: ids[i], Role: model.RoleUser, Content: "x"}))
	}

	gt.NoError(t, repo.DeleteTurns(ctx, key, ids[:2]))

	turns, err := repo.ListTurns(ctx, key)
	gt.NoError(t, err)
	gt.A(t, turns).Length(1)
	gt.Equal(t, turns[0].ID, ids[2])
}

func TestMemoryRecords(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	now := time.Now()

	older := &model.MemoryRecord{
		ID: model.NewRecordID(), ActorID: "alice", Fact: "older fact",
		CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour),
	}
	newer := &model.MemoryRecord{
		ID: model.NewRecordID(), ActorID: "alice", Fact: "newer fact",
		CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}
	other := &model.MemoryRecord{
		ID: model.NewRecordID(), ActorID: "bob", Fact: "bob fact",
		CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}

	gt.NoError(t, repo.PutRecord(ctx, older))
	gt.NoError(t, repo.PutRecord(ctx, newer))
	gt.NoError(t, repo.PutRecord(ctx, other))

	records, err := repo.ListRecords(ctx, "alice")
	gt.NoError(t, err)
	gt.A(t, records).Length(2)

	// Newest first, scoped to the actor
	gt.Equal(t, records[0].Fact, "newer fact")
	gt.Equal(t, records[1].Fact, "older fact")

	gt.NoError(t, repo.DeleteRecord(ctx, newer.ID))
	records, err = repo.ListRecords(ctx, "alice")
	gt.NoError(t, err)
	gt.A(t, records).Length(1)
	gt.Equal(t, records[0].Fact, "older fact")
}

func TestMemoryListRecordsIncludesExpired(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	now := time.Now()

	expired := &model.MemoryRecord{
		ID: model.NewRecordID(), ActorID: "alice", Fact: "stale",
		CreatedAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}
	gt.NoError(t, repo.PutRecord(ctx, expired))

	// Expiry is the store's concern, the repository returns everything
	records, err := repo.ListRecords(ctx, "alice")
	gt.NoError(t, err)
	gt.A(t, records).Length(1)
}
