// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes linkdex tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/linkdex/internal/apperr"
	"github.com/starford/linkdex/internal/noteservice"
)

const contractURI = "linkdex://link-note-format"

// Server wraps the MCP server with linkdex tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all linkdex tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"linkdex",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("find_url_matches",
		mcp.WithDescription("Find notes that reference a URL. Returns exact matches "+
			"(same URL after normalization), other notes on the same domain and, for "+
			"Reddit, YouTube, Twitter/X and GitHub, platform groups."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Absolute http(s) URL")),
	), s.findURLMatches)

	s.mcp.AddTool(mcp.NewTool("recent_link_notes",
		mcp.WithDescription("List the most recently modified notes that hold URLs."),
		mcp.WithNumber("limit", mcp.Description("Max notes (default: configured cap)")),
	), s.recentLinkNotes)

	s.mcp.AddTool(mcp.NewTool("explore_links",
		mcp.WithDescription("Group every link note along one dimension."),
		mcp.WithString("dimension", mcp.Required(),
			mcp.Enum("tags", "subreddits", "channels", "users", "repos", "domains"),
			mcp.Description("Grouping dimension")),
		mcp.WithString("allowlist", mcp.Description("Comma-separated tag allowlist (tags only)")),
	), s.exploreLinks)

	s.mcp.AddTool(mcp.NewTool("read_link_note",
		mcp.WithDescription("Read a note with its URLs, tags and content."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readLinkNote)

	s.mcp.AddTool(mcp.NewTool("create_link_note",
		mcp.WithDescription("Create a new link note for a URL. "+
			"Call find_url_matches first to avoid duplicates. Read the format via "+
			"the get_link_note_contract tool or the "+contractURI+" resource."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Absolute http(s) URL")),
		mcp.WithString("title", mcp.Description("Note title; also used for the file name")),
		mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Tags without leading #")),
		mcp.WithString("folder", mcp.Description("Vault folder for the new note")),
		mcp.WithString("body", mcp.Description("Markdown body")),
	), s.createLinkNote)

	s.mcp.AddTool(mcp.NewTool("get_link_note_contract",
		mcp.WithDescription("Returns the link note format contract, including the "+
			"front-matter fields this instance reads."),
	), s.getLinkNoteContract)

	// Resource: link note format contract.
	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Link Note Format",
			mcp.WithResourceDescription("Markdown link note format indexed by linkdex."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) findURLMatches(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Matches(ctx, target)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res)
}

func (s *Server) recentLinkNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 0)
	if limit < 0 {
		return mcp.NewToolResultError("limit must be non-negative"), nil
	}
	return jsonResult(s.svc.Recent(ctx, limit))
}

func (s *Server) exploreLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dim, err := req.RequireString("dimension")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	groups, err := s.svc.Explore(ctx, dim, req.GetString("allowlist", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(groups)
}

func (s *Server) readLinkNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(note)
}

func (s *Server) createLinkNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	u, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.CreateLinkNote(ctx, noteservice.LinkNoteInput{
		URL:    u,
		Title:  req.GetString("title", ""),
		Tags:   req.GetStringSlice("tags", nil),
		Folder: req.GetString("folder", ""),
		Body:   req.GetString("body", ""),
	})
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", note.Path)), nil
}

func (s *Server) getLinkNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(contractFor(s.svc.Settings())), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     contractFor(s.svc.Settings()),
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encode result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	case errors.Is(err, apperr.ErrAlreadyExists), errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError("conflict: " + err.Error())
	default:
		return mcp.NewToolResultError(err.Error())
	}
}
