package rag

import (
	"github.com/ziadkadry99/docsense/internal/llm"
	"github.com/ziadkadry99/docsense/internal/vectordb"
)

// Turn is one message of a chat session.
type Turn struct {
	Role    llm.Role `json:"role"`
	Content string   `json:"content"`
}

// ContextDoc is a retrieved chunk as shown to clients for citation.
type ContextDoc struct {
	PageContent string            `json:"page_content"`
	Metadata    map[string]string `json:"metadata"`
	Similarity  float32           `json:"similarity"`
}

// Answer is the result of a question.
type Answer struct {
	Answer       string       `json:"answer"`
	ContextDocs  []ContextDoc `json:"context_docs"`
	Model        string       `json:"model"`
	InputTokens  int          `json:"input_tokens"`
	OutputTokens int          `json:"output_tokens"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// IngestResult reports the outcome of ingesting one document. Err carries
// the underlying error for callers that need errors.Is.
type IngestResult struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Chunks   int    `json:"chunks,omitempty"`
	Message  string `json:"message,omitempty"`
	Err      error  `json:"-"`
}

// OK reports whether the ingest succeeded.
func (r IngestResult) OK() bool { return r.Status == StatusSuccess }

// ProgressFunc is called during bulk ingest to report progress.
type ProgressFunc func(processed int, total int, currentFile string)

func toContextDocs(results []vectordb.SearchResult) []ContextDoc {
	docs := make([]ContextDoc, len(results))
	for i, r := range results {
		docs[i] = ContextDoc{
			PageContent: r.Record.Text,
			Metadata:    r.Record.Metadata,
			Similarity:  r.Similarity,
		}
	}
	return docs
}
