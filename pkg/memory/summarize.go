package memory

import (
	"context"
	_ "embed"
	"strings"

	"github.com/m-mizutani/burrow/pkg/adapter"
	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

//go:embed prompt/summarize.md
var summarizePromptRaw string

// summarize condenses elapsed short-term turns into a long-term fact summary.
// Returns "" when the model judged nothing worth keeping.
func summarize(ctx context.Context, gemini adapter.Gemini, turns []*model.ConversationTurn) (string, error) {
	if gemini == nil {
		return "", goerr.New("no completion capability for summarization")
	}
	if len(turns) == 0 {
		return "", nil
	}

	contents := make([]*genai.Content, 0, len(turns)+1)
	for _, turn := range turns {
		role := genai.RoleUser
		text := turn.Content
		switch turn.Role {
		case model.RoleAssistant:
			role = genai.RoleModel
		case model.RoleTool:
			text = "[tool] " + text
		}
		contents = append(contents, genai.NewContentFromText(text, genai.Role(role)))
	}
	contents = append(contents, genai.NewContentFromText(summarizePromptRaw, genai.RoleUser))

	thinkingBudget := int32(0)
	temperature := float32(0)
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText("You maintain long-term memory for a FAQ assistant.", ""),
		Temperature:       &temperature,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  &thinkingBudget,
		},
	}

	resp, err := gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate memory summary")
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", goerr.New("no summary generated")
	}

	var summary strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			summary.WriteString(part.Text)
		}
	}

	text := strings.TrimSpace(summary.String())
	if text == "" || text == "NONE" {
		return "", nil
	}
	return text, nil
}
