package mcp

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/careerconnect-rag/internal/analysis"
	"github.com/bull/careerconnect-rag/internal/manifest"
	"github.com/bull/careerconnect-rag/internal/retrieval"
	"github.com/bull/careerconnect-rag/internal/storage"
)

// Version is reported to MCP clients.
const Version = "v0.1.0"

// Analyzer runs resume analyses.
type Analyzer interface {
	Analyze(ctx context.Context, resumeText, jobDescription string) (*analysis.Report, error)
}

// Searcher runs a single categorized similarity search.
type Searcher interface {
	Search(ctx context.Context, text string, q retrieval.Query) ([]storage.Match, error)
}

// StatsProvider reports index statistics.
type StatsProvider interface {
	Collection() string
	Stats(ctx context.Context, categories []string) (*storage.IndexStats, error)
}

// RunReader returns the last recorded ingestion run, nil when none.
type RunReader interface {
	LastRun() (*manifest.Run, error)
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies. Manifest may be nil.
type Config struct {
	Analyzer   Analyzer
	Searcher   Searcher
	Index      StatsProvider
	Manifest   RunReader
	Categories []string // categories counted by index_status
	MinScore   float64  // default search_knowledge threshold
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "careerconnect-rag",
		Version: Version,
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_resume",
		Description: "Score a resume against a job description. Returns a 0-100 match score, strengths, weaknesses, missing keywords and a verdict, grounded in the career-advice knowledge base.",
	}, makeAnalyzeHandler(cfg.Analyzer))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_knowledge",
		Description: "Semantic search over the career-advice knowledge base. Returns matching passages with their category and relevance score.",
	}, makeSearchHandler(cfg.Searcher, cfg.MinScore))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_status",
		Description: "Report knowledge-base population: vector counts per category, dimension and the last ingestion run.",
	}, makeStatusHandler(cfg.Index, cfg.Manifest, cfg.Categories))

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}

// HTTPHandler serves the MCP server over Streamable HTTP. Stateless mode
// disables session tracking; every tool here is request/response.
func (s *Server) HTTPHandler(stateless bool) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, &mcp.StreamableHTTPOptions{Stateless: stateless})
}
