package mcp

import (
	"context"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

// Provider exposes external MCP server tools through the agent's tool
// interface. Tool names are prefixed with the server name to avoid clashes
// with built-in tools and between servers.
type Provider struct {
	client *Client
	routes map[string]route
}

type route struct {
	server string
	tool   string
}

// NewProvider creates a tool provider backed by the given MCP client.
func NewProvider(client *Client) *Provider {
	p := &Provider{
		client: client,
		routes: make(map[string]route),
	}

	for _, serverName := range client.ServerNames() {
		tools, err := client.Tools(serverName)
		if err != nil {
			continue
		}
		for _, t := range tools {
			p.routes[qualifiedName(serverName, t.Name)] = route{server: serverName, tool: t.Name}
		}
	}

	return p
}

func qualifiedName(server, tool string) string {
	return server + "__" + tool
}

// Spec returns function declarations for all tools on all connected servers.
func (p *Provider) Spec() *genai.Tool {
	var decls []*genai.FunctionDeclaration

	for _, serverName := range p.client.ServerNames() {
		tools, err := p.client.Tools(serverName)
		if err != nil {
			continue
		}

		for _, t := range tools {
			decl := &genai.FunctionDeclaration{
				Name:        qualifiedName(serverName, t.Name),
				Description: t.Description,
			}

			if in, ok := t.InputSchema.(*jsonschema.Schema); ok && in != nil {
				if schema, err := convertJSONSchemaToGenai(in); err == nil {
					decl.Parameters = schema
				}
			}

			decls = append(decls, decl)
		}
	}

	return &genai.Tool{FunctionDeclarations: decls}
}

// Execute routes a function call to the owning MCP server.
func (p *Provider) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	r, ok := p.routes[fc.Name]
	if !ok {
		return nil, goerr.Wrap(model.ErrUnknownTool, "no MCP route for tool", goerr.V("name", fc.Name))
	}

	result, err := p.client.CallTool(ctx, r.server, r.tool, fc.Args)
	if err != nil {
		return nil, goerr.Wrap(model.ErrToolExecution, err.Error(),
			goerr.V("server", r.server), goerr.V("tool", r.tool))
	}

	var texts []string
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}

	resp := map[string]any{"result": strings.Join(texts, "\n")}
	if result.IsError {
		resp = map[string]any{"error": strings.Join(texts, "\n")}
	}

	return &genai.FunctionResponse{
		Name:     fc.Name,
		Response: resp,
	}, nil
}

// Prompt describes the external tools so the model knows they exist.
func (p *Provider) Prompt(ctx context.Context) string {
	names := make([]string, 0, len(p.routes))
	for name := range p.routes {
		names = append(names, name)
	}
	if len(names) == 0 {
		return ""
	}
	return "External tools are available: " + strings.Join(names, ", ")
}

// Flags returns no flags; MCP servers are configured via the config file.
func (p *Provider) Flags() []cli.Flag {
	return nil
}
