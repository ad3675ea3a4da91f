package index

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/m-mizutani/burrow/pkg/adapter"
	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/burrow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	chromem "github.com/philippgille/chromem-go"
)

const (
	// DefaultEmbeddingDims matches the embedding model configured in the
	// Gemini adapter
	DefaultEmbeddingDims = 768

	// DefaultChunkSize is the split size (in runes) for long answers
	DefaultChunkSize = 1000
)

// SourceEntry is the ingestion boundary shape: one (question, answer) pair
// from the knowledge base source.
type SourceEntry struct {
	Question string
	Answer   string
}

// Index is the semantic search index over the knowledge base. Built once,
// read-only afterwards; safe for unlimited concurrent reads.
type Index struct {
	gemini  adapter.Gemini
	col     *chromem.Collection
	entries []model.FAQEntry
	dims    int32
	docs    int
}

type Option func(*Index)

// WithEmbeddingDims sets the embedding dimensionality. Must match between
// build and query, so it is fixed at build time.
func WithEmbeddingDims(dims int32) Option {
	return func(x *Index) {
		x.dims = dims
	}
}

type buildConfig struct {
	chunkSize int
}

type BuildOption func(*buildConfig)

// WithChunkSize sets the split size for long answer texts. Each chunk is
// embedded separately but resolves to the same entry at search time.
func WithChunkSize(size int) BuildOption {
	return func(c *buildConfig) {
		c.chunkSize = size
	}
}

// Build embeds every knowledge base entry and constructs the similarity
// search structure. The index holds no mutable state after Build returns.
func Build(ctx context.Context, gemini adapter.Gemini, entries []SourceEntry, opts ...Option) (*Index, error) {
	return BuildWith(ctx, gemini, entries, nil, opts...)
}

// BuildWith is Build with explicit build options (chunking).
func BuildWith(ctx context.Context, gemini adapter.Gemini, entries []SourceEntry, buildOpts []BuildOption, opts ...Option) (*Index, error) {
	if len(entries) == 0 {
		return nil, goerr.Wrap(model.ErrIndexBuild, "knowledge base is empty")
	}

	bc := &buildConfig{chunkSize: DefaultChunkSize}
	for _, opt := range buildOpts {
		opt(bc)
	}
	if bc.chunkSize <= 0 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "chunk size must be positive",
			goerr.V("chunk_size", bc.chunkSize))
	}

	x := &Index{
		gemini: gemini,
		dims:   DefaultEmbeddingDims,
	}
	for _, opt := range opts {
		opt(x)
	}

	db := chromem.NewDB()
	col, err := db.CreateCollection("knowledge", nil, nil)
	if err != nil {
		return nil, goerr.Wrap(model.ErrIndexBuild, "failed to create collection", goerr.V("cause", err))
	}
	x.col = col

	for seq, src := range entries {
		entry := model.FAQEntry{
			ID:       model.NewEntryID(),
			Question: src.Question,
			Answer:   src.Answer,
		}

		for ci, chunk := range splitRunes(src.Answer, bc.chunkSize) {
			text := src.Question + "\n" + chunk
			embedding, err := gemini.Embedding(ctx, text, x.dims)
			if err != nil {
				return nil, goerr.Wrap(model.ErrIndexBuild, "failed to embed entry",
					goerr.V("seq", seq), goerr.V("chunk", ci), goerr.V("cause", err))
			}
			if len(embedding) != int(x.dims) {
				return nil, goerr.Wrap(model.ErrIndexBuild, "unexpected embedding dimensionality",
					goerr.V("got", len(embedding)), goerr.V("want", x.dims))
			}

			if ci == 0 {
				entry.Embedding = embedding
			}

			doc := chromem.Document{
				ID:        fmt.Sprintf("%s#%d", entry.ID, ci),
				Content:   text,
				Embedding: embedding,
				Metadata: map[string]string{
					"seq": strconv.Itoa(seq),
				},
			}
			if err := col.AddDocument(ctx, doc); err != nil {
				return nil, goerr.Wrap(model.ErrIndexBuild, "failed to add document",
					goerr.V("seq", seq), goerr.V("cause", err))
			}
			x.docs++
		}

		x.entries = append(x.entries, entry)
	}

	logging.From(ctx).Info("knowledge index built",
		"entries", len(x.entries),
		"documents", x.docs,
		"dims", x.dims,
	)

	return x, nil
}

// Size returns the number of indexed entries
func (x *Index) Size() int {
	return len(x.entries)
}

// Search returns up to k entries ordered by descending cosine similarity.
// Ties are broken by original insertion order. Returns fewer than k results
// only when the index holds fewer than k entries.
func (x *Index) Search(ctx context.Context, query string, k int) ([]model.SearchHit, error) {
	if k < 1 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "k must be >= 1", goerr.V("k", k))
	}
	return x.search(ctx, query, min(k, len(x.entries)))
}

// SearchDetailed is the same operation as Search with a larger result budget:
// k is capped at the index size instead of being an error when oversized.
func (x *Index) SearchDetailed(ctx context.Context, query string, k int) ([]model.SearchHit, error) {
	if k < 1 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "k must be >= 1", goerr.V("k", k))
	}
	return x.search(ctx, query, min(k, len(x.entries)))
}

func (x *Index) search(ctx context.Context, query string, k int) ([]model.SearchHit, error) {
	embedding, err := x.gemini.Embedding(ctx, query, x.dims)
	if err != nil {
		return nil, goerr.Wrap(model.ErrUpstreamCapability, "failed to embed query", goerr.V("cause", err))
	}

	// Score every document so that chunked entries collapse to their best
	// chunk before shaping the top-k.
	results, err := x.col.QueryEmbedding(ctx, embedding, x.docs, nil, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "vector query failed")
	}

	best := make(map[int]float64, len(x.entries))
	for _, r := range results {
		seq, err := strconv.Atoi(r.Metadata["seq"])
		if err != nil || seq < 0 || seq >= len(x.entries) {
			continue
		}
		score := float64(r.Similarity)
		if cur, ok := best[seq]; !ok || score > cur {
			best[seq] = score
		}
	}

	hits := make([]model.SearchHit, 0, len(best))
	for seq := 0; seq < len(x.entries); seq++ {
		score, ok := best[seq]
		if !ok {
			continue
		}
		hits = append(hits, model.SearchHit{Entry: x.entries[seq], Score: score})
	}

	// Stable sort keeps insertion order within equal scores
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// splitRunes splits s into rune chunks of at most size. An empty string still
// yields one empty chunk so every entry gets indexed.
func splitRunes(s string, size int) []string {
	runes := []rune(s)
	if len(runes) <= size {
		return []string{s}
	}

	var chunks []string
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
