package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/phuslu/log"

	"github.com/ziadkadry99/docsense/internal/llm"
)

// DefaultTemperature keeps answers close to the retrieved text.
const DefaultTemperature = 0.3

// Synthesizer answers questions from retrieved context.
type Synthesizer struct {
	retriever    *Retriever
	provider     llm.Provider
	providerType string
	defaultModel string
	temperature  float64
}

// NewSynthesizer creates a Synthesizer. providerType restricts the models
// callers may request (see llm.IsSupportedModel).
func NewSynthesizer(retriever *Retriever, provider llm.Provider, providerType, defaultModel string, temperature float64) *Synthesizer {
	if defaultModel == "" {
		defaultModel = llm.DefaultChatModel
	}
	return &Synthesizer{
		retriever:    retriever,
		provider:     provider,
		providerType: providerType,
		defaultModel: defaultModel,
		temperature:  temperature,
	}
}

// Ask answers question using only indexed context. history holds earlier
// turns of the same session, oldest first. Any failure is a *SynthesisError
// and no partial answer is returned.
func (s *Synthesizer) Ask(ctx context.Context, question, model string, history []Turn) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &SynthesisError{Op: "validate", Err: ErrEmptyQuestion}
	}
	if model == "" {
		model = s.defaultModel
	}
	if !llm.IsSupportedModel(s.providerType, model) {
		return nil, &SynthesisError{Op: "validate", Err: fmt.Errorf("%w: %s", ErrUnsupportedModel, model)}
	}

	results, err := s.retriever.Retrieve(ctx, question, nil)
	if err != nil {
		return nil, &SynthesisError{Op: "retrieve", Err: err}
	}

	messages := answerMessages(joinContext(results), history, question)
	start := time.Now()
	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: s.temperature,
	})
	if err != nil {
		return nil, &SynthesisError{Op: "generate", Err: err}
	}
	// Some providers (ollama) do not report usage.
	if resp.InputTokens == 0 {
		resp.InputTokens = llm.CountMessageTokens(messages)
	}

	log.Debug().
		Str("model", model).
		Int("context_docs", len(results)).
		Int("input_tokens", resp.InputTokens).
		Int("output_tokens", resp.OutputTokens).
		Dur("elapsed", time.Since(start)).
		Msg("answered question")

	return &Answer{
		Answer:       strings.TrimSpace(resp.Content),
		ContextDocs:  toContextDocs(results),
		Model:        model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}, nil
}
