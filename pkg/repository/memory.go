package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/burrow/pkg/model"
)

// Memory is the in-process Repository used for local runs and tests. All
// state lives for the process and is partitioned per session key.
type Memory struct {
	mu      sync.RWMutex
	turns   map[string][]*model.ConversationTurn
	records map[model.RecordID]*model.MemoryRecord
}

// NewMemory creates a new in-process repository
func NewMemory() *Memory {
	return &Memory{
		turns:   make(map[string][]*model.ConversationTurn),
		records: make(map[model.RecordID]*model.MemoryRecord),
	}
}

func (m *Memory) PutTurn(ctx context.Context, key model.SessionKey, turn *model.ConversationTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *turn
	m.turns[key.String()] = append(m.turns[key.String()], &copied)
	return nil
}

func (m *Memory) ListTurns(ctx context.Context, key model.SessionKey) ([]*model.ConversationTurn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.turns[key.String()]
	turns := make([]*model.ConversationTurn, len(stored))
	for i, t := range stored {
		copied := *t
		turns[i] = &copied
	}
	return turns, nil
}

func (m *Memory) DeleteTurns(ctx context.Context, key model.SessionKey, ids []model.TurnID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	drop := make(map[model.TurnID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	var kept []*model.ConversationTurn
	for _, t := range m.turns[key.String()] {
		if !drop[t.ID] {
			kept = append(kept, t)
		}
	}
	m.turns[key.String()] = kept
	return nil
}

func (m *Memory) PutRecord(ctx context.Context, record *model.MemoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *record
	m.records[record.ID] = &copied
	return nil
}

func (m *Memory) ListRecords(ctx context.Context, actorID string) ([]*model.MemoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var records []*model.MemoryRecord
	for _, r := range m.records {
		if r.ActorID == actorID {
			copied := *r
			records = append(records, &copied)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

func (m *Memory) DeleteRecord(ctx context.Context, id model.RecordID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, id)
	return nil
}
