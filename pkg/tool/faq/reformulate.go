package faq

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/m-mizutani/burrow/pkg/adapter"
	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

// Reformulate is the reformulate_query tool. It is a model-assisted rewrite,
// not a retriever operation: given an ambiguous or multi-aspect query it asks
// the completion capability for alternative phrasings to search with.
type Reformulate struct {
	gemini adapter.Gemini
}

// NewReformulate creates a new reformulate_query tool
func NewReformulate(gemini adapter.Gemini) *Reformulate {
	return &Reformulate{gemini: gemini}
}

const reformulateSystemPrompt = `You rewrite user queries for a FAQ semantic search engine.
Produce 2 to 4 alternative phrasings of the given query. Each alternative must:
- keep the original intent,
- isolate one aspect if the query mixes several,
- use plain declarative keywords rather than conversational filler.
Respond with JSON only.`

func (r *Reformulate) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "reformulate_query",
				Description: "Rewrite an ambiguous or multi-aspect query into alternative search queries. Use before searching again when search_faq results look unrelated to the user's question.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"query": {
							Type:        genai.TypeString,
							Description: "The query to reformulate",
						},
					},
					Required: []string{"query"},
				},
			},
		},
	}
}

type reformulateResult struct {
	Queries []string `json:"queries"`
}

func (r *Reformulate) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	query, ok := fc.Args["query"].(string)
	if !ok || query == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "query is required")
	}

	thinkingBudget := int32(0)
	temperature := float32(0)
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(reformulateSystemPrompt, ""),
		Temperature:       &temperature,
		ResponseMIMEType:  "application/json",
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  &thinkingBudget,
		},
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"queries": {
					Type:        genai.TypeArray,
					Description: "Alternative search queries",
					Items:       &genai.Schema{Type: genai.TypeString},
				},
			},
			Required: []string{"queries"},
		},
	}

	contents := []*genai.Content{
		genai.NewContentFromText(query, genai.RoleUser),
	}

	resp, err := r.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to reformulate query")
	}

	text := responseText(resp)
	if text == "" {
		return nil, goerr.New("empty reformulation response")
	}

	var result reformulateResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, goerr.Wrap(err, "failed to parse reformulation response", goerr.V("text", text))
	}
	if len(result.Queries) == 0 {
		return nil, goerr.New("no alternative queries generated")
	}

	return &genai.FunctionResponse{
		Name:     fc.Name,
		Response: map[string]any{"result": strings.Join(result.Queries, "\n")},
	}, nil
}

func (r *Reformulate) Prompt(ctx context.Context) string {
	return "If FAQ search results look unrelated to the question, call reformulate_query once and retry the search with an alternative phrasing."
}

func (r *Reformulate) Flags() []cli.Flag {
	return nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
