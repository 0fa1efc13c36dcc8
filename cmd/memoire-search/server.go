// Command memoire-search is an MCP tool server exposing search_ocr and
// search_audio over the full-text index, so an LLM client can query
// captured screen/audio history directly. Grounded on
// madpsy-ka9q_ubersdr/mcp_server.go's tool registration and handler shape;
// mcp/go.mod (empty of source in the pack) is what establishes
// mark3labs/mcp-go as the teacher's chosen library for this kind of surface.
package main

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"memoire/internal/search"
	"memoire/internal/storage"
)

type searchServer struct {
	store     *storage.Store
	mcpServer *server.MCPServer
}

func newSearchServer(store *storage.Store) *searchServer {
	s := &searchServer{store: store}
	s.mcpServer = server.NewMCPServer(
		"memoire-search",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

func (s *searchServer) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("search_ocr",
			mcp.WithDescription("Search OCR'd on-screen text captured from this machine's monitors. Returns matching frames ranked by relevance, with the surrounding window/app context and a total match count."),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Search text; matched as a literal phrase against the indexed OCR text."),
			),
			mcp.WithNumber("limit",
				mcp.Description("Max results to return (default 50, max 100)."),
				mcp.DefaultNumber(50),
			),
			mcp.WithNumber("offset",
				mcp.Description("Result offset for pagination (default 0)."),
				mcp.DefaultNumber(0),
			),
		),
		s.handleSearchOcr,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("search_audio",
			mcp.WithDescription("Search transcribed audio captured from this machine. Returns matching transcript segments ranked by relevance, with timing and a total match count."),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Search text; matched as a literal phrase against the indexed transcript."),
			),
			mcp.WithNumber("limit",
				mcp.Description("Max results to return (default 50, max 100)."),
				mcp.DefaultNumber(50),
			),
			mcp.WithNumber("offset",
				mcp.Description("Result offset for pagination (default 0)."),
				mcp.DefaultNumber(0),
			),
		),
		s.handleSearchAudio,
	)
}

func (s *searchServer) handleSearchOcr(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := int64(request.GetFloat("limit", 50))
	offset := int64(request.GetFloat("offset", 0))

	results, err := search.SearchOcr(ctx, s.store, query, limit, offset)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search_ocr: %v", err)), nil
	}

	body, err := sonic.MarshalIndent(results, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search_ocr: marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}

func (s *searchServer) handleSearchAudio(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := int64(request.GetFloat("limit", 50))
	offset := int64(request.GetFloat("offset", 0))

	results, err := search.SearchAudio(ctx, s.store, query, limit, offset)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search_audio: %v", err)), nil
	}

	body, err := sonic.MarshalIndent(results, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search_audio: marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}
