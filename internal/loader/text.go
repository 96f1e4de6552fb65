package loader

import (
	"fmt"
	"os"
	"strings"

	"github.com/ziadkadry99/docsense/internal/document"
)

func loadText(path string) ([]document.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	text := strings.ToValidUTF8(string(data), "\uFFFD")
	text = strings.TrimPrefix(text, "\uFEFF")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return []document.Segment{{Text: text, Metadata: map[string]string{}}}, nil
}
