// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes documentation answers as tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/vectorfox/internal/answer"
	"github.com/starford/vectorfox/internal/markdown"
)

// AnswerFormatURI identifies the answer format resource.
const AnswerFormatURI = "vectorfox://answer-format"

// Server wraps the MCP server with the documentation tools.
type Server struct {
	mcp     *server.MCPServer
	backend answer.Backend
	logger  *slog.Logger
}

// New creates a new MCP server answering from backend.
func New(backend answer.Backend, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{backend: backend, logger: logger}

	s.mcp = server.NewMCPServer(
		"vectorfox",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("ask_docs",
		mcp.WithDescription("Ask a question about the indexed documentation. "+
			"Returns a Markdown answer followed by the list of source URLs it was built from. "+
			"See the "+AnswerFormatURI+" resource for the exact layout."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Question in natural language")),
	), s.askDocs)

	s.mcp.AddTool(mcp.NewTool("list_sources",
		mcp.WithDescription("List the documentation URLs relevant to a query without generating an answer."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Question or keywords")),
	), s.listSources)

	s.mcp.AddResource(
		mcp.NewResource(AnswerFormatURI, "Answer Format",
			mcp.WithResourceDescription("Layout of the text returned by ask_docs."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readAnswerFormat,
	)

	return s
}

// Serve runs the stdio protocol on in and out until ctx is done or in
// reaches EOF.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) askDocs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	h := answer.NewHandler(s.backend, markdown.Plain{}, nil,
		answer.WithStatusDelay(0),
		answer.WithLogger(s.logger))
	defer h.Close()

	if err := h.Submit(ctx, query); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page := h.Page()
	return mcp.NewToolResultText(formatAnswer(page.Markdown, page.Sources)), nil
}

func (s *Server) listSources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	urls, err := s.backend.Sources(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if urls == nil {
		urls = []string{}
	}
	out, _ := json.MarshalIndent(urls, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readAnswerFormat(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      AnswerFormatURI,
			MIMEType: "text/markdown",
			Text:     AnswerFormat,
		},
	}, nil
}

func formatAnswer(body string, sources []string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(body, "\n"))
	b.WriteString("\n\n")
	b.WriteString(SourcesHeading)
	b.WriteString("\n")
	for _, u := range sources {
		b.WriteString("- ")
		b.WriteString(u)
		b.WriteString("\n")
	}
	return b.String()
}
