package index_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/m-mizutani/burrow/pkg/index"
	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/gt"
	"google.golang.org/genai"
)

// mockGemini returns fixed embeddings keyed by substring match so that
// similarity ordering is fully deterministic in tests.
type mockGemini struct {
	vectors []vectorRule
	calls   int
}

type vectorRule struct {
	substr string
	vec    []float32
}

func (m *mockGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return nil, nil
}

func (m *mockGemini) Embedding(ctx context.Context, text string, dims int32) ([]float32, error) {
	m.calls++
	for _, rule := range m.vectors {
		if strings.Contains(text, rule.substr) {
			return rule.vec, nil
		}
	}
	return []float32{0, 0, 1}, nil
}

func testEntries() []index.SourceEntry {
	return []index.SourceEntry{
		{Question: "How do I reset my password?", Answer: "Use the reset link on the login page."},
		{Question: "What are the shipping costs?", Answer: "Shipping is free for orders over $50."},
		{Question: "How do I change my email address?", Answer: "Open account settings and edit the email field."},
	}
}

func testGemini() *mockGemini {
	return &mockGemini{
		vectors: []vectorRule{
			{substr: "password", vec: []float32{1, 0, 0}},
			{substr: "shipping", vec: []float32{0, 1, 0}},
			{substr: "email", vec: []float32{0.8, 0.6, 0}},
		},
	}
}

func TestBuildEmptyKnowledgeBase(t *testing.T) {
	ctx := context.Background()

	_, err := index.Build(ctx, testGemini(), nil, index.WithEmbeddingDims(3))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrIndexBuild))
}

func TestSearchOrdering(t *testing.T) {
	ctx := context.Background()

	idx, err := index.Build(ctx, testGemini(), testEntries(), index.WithEmbeddingDims(3))
	gt.NoError(t, err)
	gt.Equal(t, idx.Size(), 3)

	hits, err := idx.Search(ctx, "password", 3)
	gt.NoError(t, err)
	gt.A(t, hits).Length(3)

	// Descending similarity: password exact, email close, shipping orthogonal
	gt.S(t, hits[0].Entry.Question).Contains("password")
	gt.S(t, hits[1].Entry.Question).Contains("email")
	gt.S(t, hits[2].Entry.Question).Contains("shipping")

	gt.Number(t, hits[0].Score).Greater(hits[1].Score)
	gt.Number(t, hits[1].Score).Greater(hits[2].Score)
}

func TestSearchResultBudget(t *testing.T) {
	ctx := context.Background()

	idx, err := index.Build(ctx, testGemini(), testEntries(), index.WithEmbeddingDims(3))
	gt.NoError(t, err)

	hits, err := idx.Search(ctx, "password", 1)
	gt.NoError(t, err)
	gt.A(t, hits).Length(1)
	gt.S(t, hits[0].Entry.Question).Contains("password")

	// Oversized k returns every entry, not an error
	hits, err = idx.Search(ctx, "password", 100)
	gt.NoError(t, err)
	gt.A(t, hits).Length(3)
}

func TestSearchInvalidK(t *testing.T) {
	ctx := context.Background()

	idx, err := index.Build(ctx, testGemini(), testEntries(), index.WithEmbeddingDims(3))
	gt.NoError(t, err)

	_, err = idx.Search(ctx, "password", 0)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrInvalidArgument))

	_, err = idx.SearchDetailed(ctx, "password", -1)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrInvalidArgument))
}

func TestSearchTieBreakInsertionOrder(t *testing.T) {
	ctx := context.Background()

	gemini := &mockGemini{
		vectors: []vectorRule{
			{substr: "refund", vec: []float32{1, 0, 0}},
		},
	}
	entries := []index.SourceEntry{
		{Question: "How do refunds work?", Answer: "Refunds take 5 days."},
		{Question: "Can I get a refund for digital items?", Answer: "Digital refund requests go to support."},
	}

	idx, err := index.Build(ctx, gemini, entries, index.WithEmbeddingDims(3))
	gt.NoError(t, err)

	hits, err := idx.Search(ctx, "refund", 2)
	gt.NoError(t, err)
	gt.A(t, hits).Length(2)

	// Equal scores keep the knowledge base order
	gt.Equal(t, hits[0].Score, hits[1].Score)
	gt.S(t, hits[0].Entry.Question).Contains("How do refunds work")
	gt.S(t, hits[1].Entry.Question).Contains("digital items")
}

func TestSearchDetailedSameRanking(t *testing.T) {
	ctx := context.Background()

	idx, err := index.Build(ctx, testGemini(), testEntries(), index.WithEmbeddingDims(3))
	gt.NoError(t, err)

	basic, err := idx.Search(ctx, "password", 3)
	gt.NoError(t, err)
	detailed, err := idx.SearchDetailed(ctx, "password", 3)
	gt.NoError(t, err)

	gt.A(t, detailed).Length(len(basic))
	for i := range basic {
		gt.Equal(t, detailed[i].Entry.ID, basic[i].Entry.ID)
		gt.Equal(t, detailed[i].Score, basic[i].Score)
	}
}

func TestSearchDeterministic(t *testing.T) {
	ctx := context.Background()

	idx, err := index.Build(ctx, testGemini(), testEntries(), index.WithEmbeddingDims(3))
	gt.NoError(t, err)

	first, err := idx.Search(ctx, "shipping", 3)
	gt.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := idx.Search(ctx, "shipping", 3)
		gt.NoError(t, err)
		gt.A(t, again).Length(len(first))
		for j := range first {
			gt.Equal(t, again[j].Entry.ID, first[j].Entry.ID)
			gt.Equal(t, again[j].Score, first[j].Score)
		}
	}
}

func TestChunkedEntryCollapses(t *testing.T) {
	ctx := context.Background()

	long := strings.Repeat("password reset procedure step. ", 20)
	entries := []index.SourceEntry{
		{Question: "How do I reset my password?", Answer: long},
		{Question: "What are the shipping costs?", Answer: "Free over $50."},
	}

	idx, err := index.BuildWith(ctx, testGemini(), entries,
		[]index.BuildOption{index.WithChunkSize(50)},
		index.WithEmbeddingDims(3))
	gt.NoError(t, err)
	gt.Equal(t, idx.Size(), 2)

	// The chunked entry surfaces exactly once even though it spans many
	// documents internally
	hits, err := idx.Search(ctx, "password", 2)
	gt.NoError(t, err)
	gt.A(t, hits).Length(2)
	gt.S(t, hits[0].Entry.Question).Contains("password")
	gt.S(t, hits[0].Entry.Answer).Contains("procedure step")
}

func TestBuildInvalidChunkSize(t *testing.T) {
	ctx := context.Background()

	_, err := index.BuildWith(ctx, testGemini(), testEntries(),
		[]index.BuildOption{index.WithChunkSize(0)},
		index.WithEmbeddingDims(3))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrInvalidArgument))
}

func TestBuildEmbeddingFailure(t *testing.T) {
	ctx := context.Background()

	// Wrong dimensionality from the capability is a build error
	gemini := &mockGemini{
		vectors: []vectorRule{
			{substr: "", vec: []float32{1, 0}},
		},
	}

	_, err := index.Build(ctx, gemini, testEntries(), index.WithEmbeddingDims(3))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrIndexBuild))
}
