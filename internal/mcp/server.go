// Package mcp exposes the document pipeline as Model Context Protocol tools
// over stdio.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/docsense/internal/catalog"
	"github.com/ziadkadry99/docsense/internal/corpus"
	"github.com/ziadkadry99/docsense/internal/rag"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Pipeline is the subset of *rag.Pipeline the tools use.
type Pipeline interface {
	Ask(ctx context.Context, question, model string) (*rag.Answer, error)
	Search(ctx context.Context, query string, k int, source string) ([]rag.ContextDoc, error)
	Suggest(ctx context.Context, path, model string) []string
	Collection() string
}

// Catalog lists ingested documents. *catalog.Store implements it.
type Catalog interface {
	List(ctx context.Context, collection string) ([]catalog.Entry, error)
}

// Server wraps an MCP server that exposes document question-answering tools.
type Server struct {
	pipeline Pipeline
	catalog  Catalog
	corpus   *corpus.Corpus
	mcp      *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(pipeline Pipeline, cat Catalog, docs *corpus.Corpus) *Server {
	s := &Server{
		pipeline: pipeline,
		catalog:  cat,
		corpus:   docs,
	}

	s.mcp = server.NewMCPServer(
		"docsense",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(askDocsTool, s.handleAskDocs)
	s.mcp.AddTool(searchDocsTool, s.handleSearchDocs)
	s.mcp.AddTool(listDocumentsTool, s.handleListDocuments)
	s.mcp.AddTool(suggestQuestionsTool, s.handleSuggestQuestions)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
