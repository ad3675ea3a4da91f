package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/burrow/pkg/adapter"
	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/burrow/pkg/repository"
	"github.com/m-mizutani/burrow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const (
	// DefaultMaxTurns is the short-term buffer budget per session key
	DefaultMaxTurns = 20

	// DefaultTTL is the retention window of long-term memory records
	DefaultTTL = 30 * 24 * time.Hour
)

// Context is the assembled memory for one invocation: the live short-term
// turn buffer plus the actor's unexpired long-term records.
type Context struct {
	Turns   []*model.ConversationTurn
	Records []*model.MemoryRecord
}

// Store is the tiered memory store. The short-term tier is an append-only
// per-session turn log bounded by a turn budget; overflowing turns are
// summarized into long-term records (tiered mode) and evicted.
type Store struct {
	repo   repository.Repository
	gemini adapter.Gemini

	mode     model.MemoryMode
	maxTurns int
	ttl      time.Duration

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock serializes appends for one session key. Entries are
// refcounted so the lock map does not grow with every session a
// long-running process ever sees.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

type Option func(*Store)

// WithMode sets the memory mode
func WithMode(mode model.MemoryMode) Option {
	return func(s *Store) {
		s.mode = mode
	}
}

// WithMaxTurns sets the short-term buffer budget
func WithMaxTurns(n int) Option {
	return func(s *Store) {
		s.maxTurns = n
	}
}

// WithTTL sets the long-term record retention window
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// New creates a new memory store
func New(repo repository.Repository, gemini adapter.Gemini, opts ...Option) *Store {
	s := &Store{
		repo:     repo,
		gemini:   gemini,
		mode:     model.MemoryModeNone,
		maxTurns: DefaultMaxTurns,
		ttl:      DefaultTTL,
		locks:    make(map[string]*sessionLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mode returns the configured memory mode
func (s *Store) Mode() model.MemoryMode {
	return s.mode
}

// acquireLock takes the mutex serializing appends for one session key
func (s *Store) acquireLock(key model.SessionKey) *sessionLock {
	s.mu.Lock()
	lock, ok := s.locks[key.String()]
	if !ok {
		lock = &sessionLock{}
		s.locks[key.String()] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return lock
}

// releaseLock releases the session mutex and prunes the map entry once no
// other append is waiting on it
func (s *Store) releaseLock(key model.SessionKey, lock *sessionLock) {
	lock.mu.Unlock()

	s.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, key.String())
	}
	s.mu.Unlock()
}

// GetContext assembles the memory context for an invocation. It never fails
// on store unavailability: a degraded (possibly empty) context is returned
// and the problem is logged.
func (s *Store) GetContext(ctx context.Context, key model.SessionKey) Context {
	if !s.mode.Enabled() {
		return Context{}
	}

	logger := logging.From(ctx)
	var memCtx Context

	turns, err := s.repo.ListTurns(ctx, key)
	if err != nil {
		logger.Warn("failed to load short-term memory, continuing without it",
			"session", key.String(), "error", err)
	} else {
		memCtx.Turns = turns
	}

	if s.mode != model.MemoryModeTiered {
		return memCtx
	}

	records, err := s.repo.ListRecords(ctx, key.ActorID)
	if err != nil {
		logger.Warn("failed to load long-term memory, continuing without it",
			"actor", key.ActorID, "error", err)
		return memCtx
	}

	// Lazy expiry: filter on read and drop expired records behind the scenes
	now := time.Now()
	for _, r := range records {
		if r.Expired(now) {
			if err := s.repo.DeleteRecord(ctx, r.ID); err != nil {
				logger.Warn("failed to delete expired memory record", "record", r.ID, "error", err)
			}
			continue
		}
		memCtx.Records = append(memCtx.Records, r)
	}

	return memCtx
}

// AppendTurn appends turns to the session's short-term buffer, serialized per
// session key. Either all given turns commit or none of them do. Exceeding
// the turn budget triggers eviction of the oldest turns, summarized into a
// long-term record in tiered mode.
func (s *Store) AppendTurn(ctx context.Context, key model.SessionKey, turns ...*model.ConversationTurn) error {
	if !s.mode.Enabled() || len(turns) == 0 {
		return nil
	}
	if err := key.Validate(); err != nil {
		return err
	}

	lock := s.acquireLock(key)
	defer s.releaseLock(key, lock)

	var committed []model.TurnID
	for _, turn := range turns {
		if turn.ID == "" {
			turn.ID = model.NewTurnID()
		}
		if turn.CreatedAt.IsZero() {
			turn.CreatedAt = time.Now()
		}

		if err := s.repo.PutTurn(ctx, key, turn); err != nil {
			// Roll back already committed turns of this batch so a failed
			// invocation leaves no partial state. The rollback must run
			// detached from the invocation deadline: an expired deadline is
			// exactly the failure it has to clean up after.
			if len(committed) > 0 {
				if delErr := s.repo.DeleteTurns(context.WithoutCancel(ctx), key, committed); delErr != nil {
					logging.From(ctx).Warn("failed to roll back partial turn batch",
						"session", key.String(), "error", delErr)
				}
			}
			return goerr.Wrap(err, "failed to append turn", goerr.V("session", key.String()))
		}
		committed = append(committed, turn.ID)
	}

	return s.evict(ctx, key)
}

// RecordLongTerm inserts a long-term record with expires_at = now + ttl
func (s *Store) RecordLongTerm(ctx context.Context, actorID, fact string, ttl time.Duration) error {
	if s.mode != model.MemoryModeTiered {
		return nil
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	now := time.Now()
	record := &model.MemoryRecord{
		ID:        model.NewRecordID(),
		ActorID:   actorID,
		Fact:      fact,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := s.repo.PutRecord(ctx, record); err != nil {
		return goerr.Wrap(err, "failed to record long-term memory", goerr.V("actor", actorID))
	}
	return nil
}

// evict enforces the short-term budget. Expects the session lock to be held.
func (s *Store) evict(ctx context.Context, key model.SessionKey) error {
	turns, err := s.repo.ListTurns(ctx, key)
	if err != nil {
		return goerr.Wrap(err, "failed to list turns for eviction", goerr.V("session", key.String()))
	}
	if len(turns) <= s.maxTurns {
		return nil
	}

	elapsed := turns[:len(turns)-s.maxTurns]
	logger := logging.From(ctx)

	if s.mode == model.MemoryModeTiered {
		fact, err := summarize(ctx, s.gemini, elapsed)
		if err != nil {
			// Eviction still proceeds: the budget invariant outranks the
			// summary, and the turns remain part of the model context only
			// until they age out anyway
			logger.Warn("failed to summarize elapsed turns", "session", key.String(), "error", err)
		} else if fact != "" {
			if err := s.RecordLongTerm(ctx, key.ActorID, fact, s.ttl); err != nil {
				logger.Warn("failed to store summary record", "session", key.String(), "error", err)
			}
		}
	}

	ids := make([]model.TurnID, len(elapsed))
	for i, t := range elapsed {
		ids[i] = t.ID
	}
	if err := s.repo.DeleteTurns(ctx, key, ids); err != nil {
		return goerr.Wrap(err, "failed to evict turns", goerr.V("session", key.String()))
	}

	logger.Debug("evicted short-term turns",
		"session", key.String(), "evicted", len(ids), "kept", s.maxTurns)
	return nil
}
