package faq

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/burrow/pkg/index"
	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

const (
	// DefaultTopK is the result budget of search_faq
	DefaultTopK = 3
)

// Search is the search_faq tool: top-k semantic lookup over the knowledge
// base with the basic result budget.
type Search struct {
	idx  *index.Index
	topK int
}

// NewSearch creates a new search_faq tool
func NewSearch(idx *index.Index, topK int) *Search {
	if topK < 1 {
		topK = DefaultTopK
	}
	return &Search{idx: idx, topK: topK}
}

func (s *Search) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "search_faq",
				Description: "Search the FAQ knowledge base for entries semantically similar to the query. Returns the top matches with question, answer and similarity score.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"query": {
							Type:        genai.TypeString,
							Description: "Natural language search query. Use the user's own words or a reformulated variant.",
						},
					},
					Required: []string{"query"},
				},
			},
		},
	}
}

func (s *Search) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	query, ok := fc.Args["query"].(string)
	if !ok || query == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "query is required")
	}

	hits, err := s.idx.Search(ctx, query, s.topK)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search knowledge base")
	}

	return &genai.FunctionResponse{
		Name:     fc.Name,
		Response: map[string]any{"result": FormatHits(hits)},
	}, nil
}

func (s *Search) Prompt(ctx context.Context) string {
	return ""
}

func (s *Search) Flags() []cli.Flag {
	return nil
}

// FormatHits renders search hits as a compact observation for the model
func FormatHits(hits []model.SearchHit) string {
	if len(hits) == 0 {
		return "No matching entries found in the knowledge base."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d entries:\n\n", len(hits))
	for i, hit := range hits {
		fmt.Fprintf(&b, "%d. (score %.4f)\n", i+1, hit.Score)
		fmt.Fprintf(&b, "   Q: %s\n", hit.Entry.Question)
		fmt.Fprintf(&b, "   A: %s\n", hit.Entry.Answer)
	}
	return b.String()
}
