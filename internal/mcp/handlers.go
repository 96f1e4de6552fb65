package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/docsense/internal/corpus"
	"github.com/ziadkadry99/docsense/internal/rag"
)

const defaultSearchLimit = 5

func (s *Server) handleAskDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	ans, err := s.pipeline.Ask(ctx, question, request.GetString("model", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString(ans.Answer)
	if len(ans.ContextDocs) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(rag.FormatContextDocs(ans.ContextDocs))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleSearchDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", defaultSearchLimit)
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	docs, err := s.pipeline.Search(ctx, query, limit, request.GetString("source", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(docs) == 0 {
		return mcp.NewToolResultText("No results found. No documents may be ingested yet. Run `docsense ingest` to add some."), nil
	}

	return mcp.NewToolResultText(rag.FormatContextDocs(docs)), nil
}

func (s *Server) handleListDocuments(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.catalog.List(ctx, s.pipeline.Collection())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing documents failed: %v", err)), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("No documents ingested."), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d document(s):\n", len(entries)))
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("- %s (%s, %s, %d chunks, ingested %s)\n",
			e.Filename, e.Format, humanize.Bytes(uint64(e.SizeBytes)), e.Chunks,
			humanize.Time(e.IngestedAt)))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleSuggestQuestions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := request.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: filename"), nil
	}

	path, err := s.corpus.Path(filename)
	if errors.Is(err, corpus.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("document %q not found", filename)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	questions := s.pipeline.Suggest(ctx, path, request.GetString("model", ""))
	if len(questions) == 0 {
		return mcp.NewToolResultText("No questions could be suggested for this document."), nil
	}
	return mcp.NewToolResultText(strings.Join(questions, "\n")), nil
}
