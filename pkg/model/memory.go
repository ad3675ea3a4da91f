package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type TurnID string

// NewTurnID generates a new unique TurnID
func NewTurnID() TurnID {
	return TurnID(uuid.New().String())
}

type RecordID string

// NewRecordID generates a new unique RecordID
func NewRecordID() RecordID {
	return RecordID(uuid.New().String())
}

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Validate checks if the role is valid
func (r Role) Validate() error {
	switch r {
	case RoleUser, RoleAssistant, RoleTool:
		return nil
	default:
		return goerr.Wrap(ErrInvalidArgument, "invalid role", goerr.V("role", r))
	}
}

// ConversationTurn is one entry of the append-only per-session turn log.
type ConversationTurn struct {
	ID        TurnID
	Role      Role
	Content   string
	CreatedAt time.Time
}

// SessionKey identifies a short-term memory buffer. Short-term buffers for
// different keys never intermix; long-term records are scoped to ActorID and
// shared across threads of the same actor.
type SessionKey struct {
	ActorID  string
	ThreadID string
}

// Validate checks that both components of the key are present
func (k SessionKey) Validate() error {
	if k.ActorID == "" || k.ThreadID == "" {
		return goerr.Wrap(ErrMissingSessionKey, "incomplete session key",
			goerr.V("actor_id", k.ActorID), goerr.V("thread_id", k.ThreadID))
	}
	return nil
}

func (k SessionKey) String() string {
	return k.ActorID + "/" + k.ThreadID
}

// MemoryRecord is a durable long-term fact summarized from elapsed
// conversation turns. Deleted (lazily, on read) once ExpiresAt passes.
type MemoryRecord struct {
	ID        RecordID
	ActorID   string
	Fact      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the record has passed its retention window
func (r *MemoryRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// MemoryMode governs which memory tiers are active for an invocation.
type MemoryMode string

const (
	// MemoryModeNone disables memory entirely; reads return empty context and
	// writes are no-ops.
	MemoryModeNone MemoryMode = "none"

	// MemoryModeShortTerm keeps only the per-session turn buffer.
	MemoryModeShortTerm MemoryMode = "short_term"

	// MemoryModeTiered keeps the turn buffer and summarizes evicted turns
	// into long-term records.
	MemoryModeTiered MemoryMode = "tiered"
)

// Validate checks if the memory mode is valid
func (m MemoryMode) Validate() error {
	switch m {
	case MemoryModeNone, MemoryModeShortTerm, MemoryModeTiered:
		return nil
	default:
		return goerr.Wrap(ErrInvalidArgument, "invalid memory mode", goerr.V("mode", m))
	}
}

// Enabled reports whether any memory tier is active
func (m MemoryMode) Enabled() bool {
	return m == MemoryModeShortTerm || m == MemoryModeTiered
}
