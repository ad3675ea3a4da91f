package assistant

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"strings"
	"text/template"
	"time"

	"github.com/m-mizutani/burrow/pkg/adapter"
	"github.com/m-mizutani/burrow/pkg/memory"
	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/burrow/pkg/tool"
	"github.com/m-mizutani/burrow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

//go:embed prompt/system.md
var systemPromptRaw string

var systemPromptTmpl = template.Must(template.New("system").Parse(systemPromptRaw))

const (
	// DefaultIterationCap bounds the tool-call loop of one invocation
	DefaultIterationCap = 8

	// DefaultTimeout bounds the total suspension time of one invocation
	DefaultTimeout = 2 * time.Minute
)

// State of the agent loop. The loop is logically sequential: it suspends only
// on the external capability calls and moves between these states.
type State string

const (
	StateAwaitModel  State = "await_model"
	StateExecuteTool State = "execute_tool"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// UseCase runs the retrieval-augmented agent loop. One Query call is one
// independent invocation; the only shared state between concurrent
// invocations is the read-only index behind the tools and the keyed memory
// store.
type UseCase struct {
	gemini   adapter.Gemini
	registry *tool.Registry
	memory   *memory.Store

	iterationCap int
	timeout      time.Duration
	retry        RetryConfig
}

type Option func(*UseCase)

// WithIterationCap sets the maximum number of model round-trips per invocation
func WithIterationCap(n int) Option {
	return func(u *UseCase) {
		if n >= 1 {
			u.iterationCap = n
		}
	}
}

// WithTimeout sets the invocation time budget. Zero disables the budget.
func WithTimeout(d time.Duration) Option {
	return func(u *UseCase) {
		u.timeout = d
	}
}

// WithRetryConfig overrides the retry behavior for model calls
func WithRetryConfig(cfg RetryConfig) Option {
	return func(u *UseCase) {
		u.retry = cfg
	}
}

// New creates a new assistant use case
func New(gemini adapter.Gemini, registry *tool.Registry, mem *memory.Store, opts ...Option) *UseCase {
	u := &UseCase{
		gemini:       gemini,
		registry:     registry,
		memory:       mem,
		iterationCap: DefaultIterationCap,
		timeout:      DefaultTimeout,
		retry:        DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Input is one invocation request. ActorID and ThreadID are required when
// the memory store runs in a memory-enabled mode.
type Input struct {
	Prompt   string
	ActorID  string
	ThreadID string
}

// Output is the invocation result. ActorID/ThreadID echo the session key on
// memory-enabled invocations and stay empty otherwise.
type Output struct {
	Result   string
	ActorID  string
	ThreadID string
	State    State
}

type systemPromptData struct {
	Records     []*model.MemoryRecord
	ToolPrompts string
}

// Query executes the agent loop for one user prompt.
func (u *UseCase) Query(ctx context.Context, input Input) (*Output, error) {
	if strings.TrimSpace(input.Prompt) == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "prompt is empty")
	}

	key := model.SessionKey{ActorID: input.ActorID, ThreadID: input.ThreadID}
	memEnabled := u.memory.Mode().Enabled()
	if memEnabled {
		if err := key.Validate(); err != nil {
			return nil, err
		}
	}

	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	logger := logging.From(ctx)

	memCtx := u.memory.GetContext(ctx, key)
	config := u.buildConfig(ctx, memCtx.Records)

	contents := make([]*genai.Content, 0, len(memCtx.Turns)+1)
	for _, turn := range memCtx.Turns {
		contents = append(contents, turnToContent(turn))
	}
	contents = append(contents, genai.NewContentFromText(input.Prompt, genai.RoleUser))

	state := StateAwaitModel
	var toolTurns []*model.ConversationTurn

	for iter := 0; iter < u.iterationCap; iter++ {
		resp, err := u.generateWithRetry(ctx, contents, config)
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, goerr.Wrap(model.ErrTimeout, "invocation exceeded its time budget",
					goerr.V("timeout", u.timeout))
			}
			return nil, err
		}

		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return nil, goerr.Wrap(model.ErrUpstreamCapability, "empty model response")
		}

		candidate := resp.Candidates[0]
		contents = append(contents, candidate.Content)

		var functionResponses []*genai.Part
		var textResponse strings.Builder

		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				textResponse.WriteString(part.Text)
			}

			if part.FunctionCall == nil {
				continue
			}

			state = StateExecuteTool
			fc := *part.FunctionCall
			logger.Debug("executing tool", "name", fc.Name, "iteration", iter)

			funcResp, err := u.registry.Execute(ctx, fc)
			if err != nil {
				// Local recovery: report the failure back to the model as an
				// observation so it can choose another action
				logger.Warn("tool call failed", "name", fc.Name, "error", err)
				funcResp = &genai.FunctionResponse{
					Name:     fc.Name,
					Response: map[string]any{"error": err.Error()},
				}
			}

			toolTurns = append(toolTurns, &model.ConversationTurn{
				Role:    model.RoleTool,
				Content: fc.Name + ": " + observationText(funcResp),
			})
			functionResponses = append(functionResponses, &genai.Part{FunctionResponse: funcResp})
		}

		if len(functionResponses) > 0 {
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: functionResponses,
			})
			state = StateAwaitModel
			continue
		}

		// No tool call: the model produced the final answer
		state = StateDone
		answer := textResponse.String()

		if memEnabled {
			turns := make([]*model.ConversationTurn, 0, len(toolTurns)+2)
			turns = append(turns, &model.ConversationTurn{Role: model.RoleUser, Content: input.Prompt})
			turns = append(turns, toolTurns...)
			turns = append(turns, &model.ConversationTurn{Role: model.RoleAssistant, Content: answer})
			if err := u.memory.AppendTurn(ctx, key, turns...); err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					return nil, goerr.Wrap(model.ErrTimeout, "invocation exceeded its time budget while persisting the exchange",
						goerr.V("session", key.String()))
				}
				return nil, goerr.Wrap(err, "failed to persist exchange", goerr.V("session", key.String()))
			}
		}

		out := &Output{Result: answer, State: state}
		if memEnabled {
			out.ActorID = key.ActorID
			out.ThreadID = key.ThreadID
		}
		return out, nil
	}

	// Iteration budget exhausted while the model kept requesting tools
	state = StateFailed
	return nil, goerr.Wrap(model.ErrInvocationFailed, "iteration cap exceeded",
		goerr.V("cap", u.iterationCap), goerr.V("state", state))
}

func (u *UseCase) buildConfig(ctx context.Context, records []*model.MemoryRecord) *genai.GenerateContentConfig {
	data := systemPromptData{
		Records:     records,
		ToolPrompts: u.registry.Prompts(ctx),
	}

	var buf bytes.Buffer
	if err := systemPromptTmpl.Execute(&buf, data); err != nil {
		// Template is embedded and parsed at init; execution over plain
		// structs does not fail, but fall back to the raw prompt anyway
		buf.Reset()
		buf.WriteString(systemPromptRaw)
	}

	// Temperature 0 keeps tool selection reproducible for identical context,
	// though the capability gives no hard determinism guarantee
	thinkingBudget := int32(0)
	temperature := float32(0)
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(buf.String(), ""),
		Temperature:       &temperature,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  &thinkingBudget,
		},
		Tools: u.registry.Specs(),
	}
}

func turnToContent(turn *model.ConversationTurn) *genai.Content {
	switch turn.Role {
	case model.RoleAssistant:
		return genai.NewContentFromText(turn.Content, genai.RoleModel)
	case model.RoleTool:
		return genai.NewContentFromText("[tool observation] "+turn.Content, genai.RoleUser)
	default:
		return genai.NewContentFromText(turn.Content, genai.RoleUser)
	}
}

func observationText(resp *genai.FunctionResponse) string {
	if resp == nil {
		return ""
	}
	if result, ok := resp.Response["result"].(string); ok {
		return result
	}
	if errMsg, ok := resp.Response["error"].(string); ok {
		return "error: " + errMsg
	}
	return ""
}
