package mcp

import (
	"context"

	"github.com/m-mizutani/burrow/pkg/index"
	"github.com/m-mizutani/burrow/pkg/tool/faq"
	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server exposes the FAQ search tools over the Model Context Protocol so that
// external agents can query the knowledge base directly.
type Server struct {
	idx *index.Index
}

// NewServer creates an MCP server backed by the given index.
func NewServer(idx *index.Index) *Server {
	return &Server{idx: idx}
}

type searchArgs struct {
	Query string `json:"query" jsonschema:"the user question to search the FAQ knowledge base for"`
}

type searchDetailedArgs struct {
	Query string `json:"query" jsonschema:"the user question to search the FAQ knowledge base for"`
	K     int    `json:"k,omitempty" jsonschema:"number of entries to return"`
}

type searchResult struct {
	Answer string `json:"answer"`
}

// Run serves the MCP protocol over stdio until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "burrow",
		Version: "0.1.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_faq",
		Description: "Search the FAQ knowledge base and return the most relevant entries",
	}, s.handleSearch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_detailed_faq",
		Description: "Search the FAQ knowledge base with a wider result set for ambiguous questions",
	}, s.handleSearchDetailed)

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return goerr.Wrap(err, "MCP server terminated")
	}
	return nil
}

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest, args searchArgs) (*mcp.CallToolResult, searchResult, error) {
	hits, err := s.idx.Search(ctx, args.Query, faq.DefaultTopK)
	if err != nil {
		return nil, searchResult{}, err
	}
	text := faq.FormatHits(hits)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, searchResult{Answer: text}, nil
}

func (s *Server) handleSearchDetailed(ctx context.Context, req *mcp.CallToolRequest, args searchDetailedArgs) (*mcp.CallToolResult, searchResult, error) {
	k := args.K
	if k <= 0 {
		k = faq.DefaultDetailedTopK
	}
	hits, err := s.idx.SearchDetailed(ctx, args.Query, k)
	if err != nil {
		return nil, searchResult{}, err
	}
	text := faq.FormatHits(hits)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, searchResult{Answer: text}, nil
}
