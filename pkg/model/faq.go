package model

import (
	"fmt"

	"github.com/google/uuid"
)

type EntryID string

// NewEntryID generates a new unique EntryID
func NewEntryID() EntryID {
	return EntryID(uuid.New().String())
}

// FAQEntry is one indexed knowledge base entry. Immutable once indexed;
// rebuilding the index is the only way to change it.
type FAQEntry struct {
	ID        EntryID
	Question  string
	Answer    string
	Embedding []float32
}

// SearchHit is a retrieved entry with its similarity score (cosine, higher is
// more similar).
type SearchHit struct {
	Entry FAQEntry
	Score float64
}

func (h SearchHit) String() string {
	return fmt.Sprintf("[%.4f] Q: %s", h.Score, h.Entry.Question)
}
