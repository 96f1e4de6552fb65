package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/phuslu/log"

	"github.com/ziadkadry99/docsense/internal/document"
	"github.com/ziadkadry99/docsense/internal/llm"
)

// SegmentLoader loads a document into segments.
type SegmentLoader interface {
	Load(path string) ([]document.Segment, error)
}

// Suggester proposes questions a reader might ask about a document.
type Suggester struct {
	loader       SegmentLoader
	provider     llm.Provider
	defaultModel string
	temperature  float64
}

// NewSuggester creates a Suggester. An empty defaultModel means llm.DefaultSuggestModel.
func NewSuggester(loader SegmentLoader, provider llm.Provider, defaultModel string, temperature float64) *Suggester {
	if defaultModel == "" {
		defaultModel = llm.DefaultSuggestModel
	}
	return &Suggester{
		loader:       loader,
		provider:     provider,
		defaultModel: defaultModel,
		temperature:  temperature,
	}
}

// Suggest returns at most five questions about the document at path, each
// ending in "?". It never fails: errors are logged and yield an empty slice.
func (s *Suggester) Suggest(ctx context.Context, path, model string) []string {
	questions, err := s.suggest(ctx, path, model)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("question suggestion failed")
		return []string{}
	}
	return questions
}

func (s *Suggester) suggest(ctx context.Context, path, model string) ([]string, error) {
	if model == "" {
		model = s.defaultModel
	}

	segments, err := s.loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	if len(segments) > suggestSegments {
		segments = segments[:suggestSegments]
	}
	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}
	excerpt := truncateRunes(strings.Join(texts, "\n\n"), suggestMaxChars)

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Model:       model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: fmt.Sprintf(suggestPrompt, excerpt)}},
		Temperature: s.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	return parseQuestions(resp.Content), nil
}
