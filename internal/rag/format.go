package rag

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/docsense/internal/document"
)

// FormatContextDocs renders retrieved passages as plain text, one block per
// passage with its source and page.
func FormatContextDocs(docs []ContextDoc) string {
	if len(docs) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n\n", len(docs)))

	for i, d := range docs {
		sb.WriteString(fmt.Sprintf("--- Result %d (similarity: %.4f) ---\n", i+1, d.Similarity))

		if src := d.Metadata[document.KeySource]; src != "" {
			location := src
			if page := d.Metadata[document.KeyPage]; page != "" {
				location += ", page " + page
			}
			sb.WriteString(fmt.Sprintf("Source: %s\n", location))
		}

		sb.WriteString("\n")
		sb.WriteString(d.PageContent)
		sb.WriteString("\n\n")
	}

	return sb.String()
}
