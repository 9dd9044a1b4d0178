// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes archive tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/pdfarchiver/internal/archive"
	"github.com/starford/pdfarchiver/internal/naming"
)

const dateLayout = "2006-01-02"

// Server wraps the MCP server with archive tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *archive.Service
	fetch func(ctx context.Context, rawURL string) ([]byte, error)
}

// New creates a new MCP server with all archive tools registered.
func New(svc *archive.Service) *Server {
	s := &Server{
		svc:   svc,
		fetch: newDownloader().Fetch,
	}

	s.mcp = server.NewMCPServer(
		"PDF Archiver",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Fuzzy search over document dates, descriptions, tags and file names. "+
			"Letters of the query must appear in order; best matches come first."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("search_content",
		mcp.WithDescription("Full-text search through the extracted text of documents."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchContent)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read a document's metadata and extracted text."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. 2010/2010-05-12--bill__tax.pdf)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List tags with document counts, optionally fuzzy filtered."),
		mcp.WithString("query", mcp.Description("Optional fuzzy filter")),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("parse_filename",
		mcp.WithDescription("Parse date, specification and tags from a file name."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("File name to parse")),
	), s.parseFilename)

	s.mcp.AddTool(mcp.NewTool("create_filename",
		mcp.WithDescription("Build the canonical file name for the given metadata. "+
			"Read the naming convention first via get_naming_convention."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Document date, yyyy-MM-dd")),
		mcp.WithString("specification", mcp.Description("Short description")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
	), s.createFilename)

	s.mcp.AddTool(mcp.NewTool("suggest_metadata",
		mcp.WithDescription("Suggest date, specification and tags for a document from its file name and text."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document")),
	), s.suggestMetadata)

	s.mcp.AddTool(mcp.NewTool("rename_document",
		mcp.WithDescription("Rename a document to the canonical name for new metadata and move it into its year folder."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document")),
		mcp.WithString("date", mcp.Required(), mcp.Description("Document date, yyyy-MM-dd")),
		mcp.WithString("specification", mcp.Description("Short description")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
		mcp.WithString("checksum", mcp.Description("Expected SHA-256 checksum; the rename fails if the file changed")),
	), s.renameDocument)

	s.mcp.AddTool(mcp.NewTool("import_document",
		mcp.WithDescription("Import a PDF from an http(s) URL or a base64 data URI (data:application/pdf;base64,...)."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data URI")),
		mcp.WithString("filename", mcp.Description("Optional file name to parse metadata from")),
	), s.importDocument)

	s.mcp.AddTool(mcp.NewTool("get_naming_convention",
		mcp.WithDescription("Returns the archive's file naming convention. "+
			"Call this before renaming or importing documents."),
	), s.getNamingConvention)

	s.mcp.AddResource(
		mcp.NewResource(NamingConventionURI, "Naming Convention",
			mcp.WithResourceDescription("File naming scheme that all archived documents follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNamingConventionResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return naming.NormalizeTags(strings.Split(s, ","))
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(hits)
}

func (s *Server) searchContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.SearchContent(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.GetDocument(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return jsonResult(doc)
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	var err error
	var result any
	if query != "" {
		result, err = s.svc.SearchTags(ctx, query)
	} else {
		result, err = s.svc.Tags(ctx)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

type parsedName struct {
	Date          string   `json:"date,omitempty"`
	Specification string   `json:"specification,omitempty"`
	Tags          []string `json:"tags"`
	Complete      bool     `json:"complete"`
}

func (s *Server) parseFilename(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p := naming.StripPlaceholders(s.svc.ParseFilename(filename))
	out := parsedName{
		Specification: p.Specification,
		Tags:          p.Tags,
		Complete:      naming.IsComplete(p),
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if p.HasDate() {
		out.Date = p.Date.Format(dateLayout)
	}
	return jsonResult(out)
}

func (s *Server) createFilename(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid date %q: want yyyy-MM-dd", raw)), nil
	}
	name := naming.CreateFilename(date, req.GetString("specification", ""), splitTags(req.GetString("tags", "")))
	return mcp.NewToolResultText(name), nil
}

func (s *Server) suggestMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sug, err := s.svc.Suggest(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(sug)
}

func (s *Server) renameDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid date %q: want yyyy-MM-dd", raw)), nil
	}
	doc, err := s.svc.UpdateDocument(ctx, path, archive.Update{
		Date:          date,
		Specification: req.GetString("specification", ""),
		Tags:          splitTags(req.GetString("tags", "")),
	}, req.GetString("checksum", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("renamed: %s -> %s", path, doc.Path)), nil
}

func (s *Server) getNamingConvention(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NamingConvention), nil
}

func (s *Server) readNamingConventionResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      NamingConventionURI,
			MIMEType: "text/markdown",
			Text:     NamingConvention,
		},
	}, nil
}
