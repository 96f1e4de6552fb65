package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTML(t *testing.T) {
	r := New()

	tests := []struct {
		name     string
		source   string
		contains []string
	}{
		{"bullets", "- one\n- two", []string{"<ul>", "<li>one</li>"}},
		{"table", "| a | b |\n|---|---|\n| 1 | 2 |", []string{"<table>", "<td>1</td>"}},
		{"code block", "```go\nfunc main() {}\n```", []string{"<pre", "func"}},
		{"plain", "Not found in docs.", []string{"<p>Not found in docs.</p>"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.HTML(tt.source)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestHTML_EscapesRawHTML(t *testing.T) {
	out, err := New().HTML("hello <script>alert(1)</script>")
	require.NoError(t, err)
	assert.False(t, strings.Contains(out, "<script>"), out)
}
