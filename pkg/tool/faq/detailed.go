package faq

import (
	"context"

	"github.com/m-mizutani/burrow/pkg/index"
	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

const (
	// DefaultDetailedTopK is the default result budget of search_detailed_faq
	// when the model omits k
	DefaultDetailedTopK = 5
)

// SearchDetailed is the search_detailed_faq tool: the same lookup operation
// as search_faq with a caller-chosen k, capped at the index size.
type SearchDetailed struct {
	idx      *index.Index
	defaultK int
}

// NewSearchDetailed creates a new search_detailed_faq tool
func NewSearchDetailed(idx *index.Index, defaultK int) *SearchDetailed {
	if defaultK < 1 {
		defaultK = DefaultDetailedTopK
	}
	return &SearchDetailed{idx: idx, defaultK: defaultK}
}

func (s *SearchDetailed) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "search_detailed_faq",
				Description: "Search the FAQ knowledge base like search_faq, but with a configurable number of results. Use when the basic search is too narrow or the question has several aspects.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"query": {
							Type:        genai.TypeString,
							Description: "Natural language search query",
						},
						"k": {
							Type:        genai.TypeInteger,
							Description: "Number of results to return (default: 5, capped at the knowledge base size)",
						},
					},
					Required: []string{"query"},
				},
			},
		},
	}
}

func (s *SearchDetailed) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	query, ok := fc.Args["query"].(string)
	if !ok || query == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "query is required")
	}

	k := s.defaultK
	// Function call arguments arrive as JSON numbers
	if raw, ok := fc.Args["k"].(float64); ok && int(raw) >= 1 {
		k = int(raw)
	}

	hits, err := s.idx.SearchDetailed(ctx, query, k)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search knowledge base", goerr.V("k", k))
	}

	return &genai.FunctionResponse{
		Name:     fc.Name,
		Response: map[string]any{"result": FormatHits(hits)},
	}, nil
}

func (s *SearchDetailed) Prompt(ctx context.Context) string {
	return ""
}

func (s *SearchDetailed) Flags() []cli.Flag {
	return nil
}
