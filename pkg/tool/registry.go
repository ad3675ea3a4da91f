package tool

import (
	"context"
	"strings"

	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/burrow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

// Registry is the closed set of actions available to the model, keyed by
// function name.
type Registry struct {
	tools     map[string]Tool
	allTools  []Tool
	toolSpecs []*genai.Tool
}

// New creates a new tool registry with the given tools
func New(tools ...Tool) *Registry {
	r := &Registry{
		tools:    make(map[string]Tool),
		allTools: tools,
	}

	for _, t := range tools {
		spec := t.Spec()
		if spec != nil && len(spec.FunctionDeclarations) > 0 {
			r.toolSpecs = append(r.toolSpecs, spec)
			for _, fd := range spec.FunctionDeclarations {
				if _, ok := r.tools[fd.Name]; ok {
					// Later registrations win. External providers can collide
					// with built-in names, so make the shadowing visible.
					logging.Default().Warn("tool function name collision, later tool shadows earlier one",
						"name", fd.Name)
				}
				r.tools[fd.Name] = t
			}
		}
	}

	return r
}

// Specs returns all tool specifications for Gemini function calling
func (r *Registry) Specs() []*genai.Tool {
	return r.toolSpecs
}

// Names returns the registered function names
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Prompts returns all tool prompts concatenated
func (r *Registry) Prompts(ctx context.Context) string {
	var prompts []string
	for _, t := range r.allTools {
		if prompt := t.Prompt(ctx); prompt != "" {
			prompts = append(prompts, prompt)
		}
	}
	return strings.Join(prompts, "\n\n")
}

// Flags returns all tool flags combined
func (r *Registry) Flags() []cli.Flag {
	var flags []cli.Flag
	for _, t := range r.allTools {
		if toolFlags := t.Flags(); toolFlags != nil {
			flags = append(flags, toolFlags...)
		}
	}
	return flags
}

// Execute runs the tool with the given function call. An unregistered name
// yields model.ErrUnknownTool; the agent loop reports it back to the model as
// an observation rather than failing the invocation.
func (r *Registry) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	t, ok := r.tools[fc.Name]
	if !ok {
		return nil, goerr.Wrap(model.ErrUnknownTool, "tool is not registered", goerr.V("name", fc.Name))
	}

	resp, err := t.Execute(ctx, fc)
	if err != nil {
		return nil, goerr.Wrap(model.ErrToolExecution, "tool returned error",
			goerr.V("name", fc.Name), goerr.V("cause", err))
	}
	return resp, nil
}
