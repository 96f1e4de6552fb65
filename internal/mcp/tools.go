package mcp

import "github.com/mark3labs/mcp-go/mcp"

var askDocsTool = mcp.NewTool("ask_docs",
	mcp.WithDescription("Answer a question using only the ingested documents. Returns the answer followed by the passages it was based on."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("Natural language question"),
	),
	mcp.WithString("model",
		mcp.Description("Chat model to use (defaults to the configured chat model)"),
	),
)

var searchDocsTool = mcp.NewTool("search_docs",
	mcp.WithDescription("Retrieve the passages most relevant to a query without generating an answer."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of passages to return (default 5)"),
	),
	mcp.WithString("source",
		mcp.Description("Restrict results to one document filename"),
	),
)

var listDocumentsTool = mcp.NewTool("list_documents",
	mcp.WithDescription("List the ingested documents with their format, size and chunk count."),
)

var suggestQuestionsTool = mcp.NewTool("suggest_questions",
	mcp.WithDescription("Suggest up to five questions that a document can answer."),
	mcp.WithString("filename",
		mcp.Required(),
		mcp.Description("Document filename as uploaded"),
	),
	mcp.WithString("model",
		mcp.Description("Model to use (defaults to the configured suggestion model)"),
	),
)
