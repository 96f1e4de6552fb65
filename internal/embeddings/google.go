package embeddings

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GoogleModel represents a supported Google embedding model.
type GoogleModel string

const (
	ModelGeminiEmbedding001 GoogleModel = "gemini-embedding-001"
)

// GoogleEmbedder generates embeddings using the Gemini API. The output is
// truncated server-side to the requested dimensionality.
type GoogleEmbedder struct {
	client     *genai.Client
	model      GoogleModel
	dimensions int
}

// NewGoogleEmbedder creates a new Google embedder.
func NewGoogleEmbedder(ctx context.Context, apiKey string, model GoogleModel, dimensions int) (*GoogleEmbedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = ModelGeminiEmbedding001
	}
	return &GoogleEmbedder{
		client:     client,
		model:      model,
		dimensions: dimensions,
	}, nil
}

func (e *GoogleEmbedder) Name() string {
	return "google/" + string(e.model)
}

func (e *GoogleEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *GoogleEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	var cfg *genai.EmbedContentConfig
	if e.dimensions > 0 {
		dim := int32(e.dimensions)
		cfg = &genai.EmbedContentConfig{OutputDimensionality: &dim}
	}

	result, err := e.client.Models.EmbedContent(ctx, string(e.model), contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("google embed request failed: %w", err)
	}
	if result == nil || len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("google returned an unexpected number of embeddings")
	}

	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		if len(emb.Values) == 0 {
			return nil, fmt.Errorf("google returned empty embedding for input %d", i)
		}
		out[i] = emb.Values
	}
	return out, nil
}
