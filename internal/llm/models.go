package llm

import "slices"

const (
	// DefaultChatModel answers questions.
	DefaultChatModel = "llama-3.3-70b-versatile"
	// DefaultSuggestModel drafts suggested questions; a small fast model is enough.
	DefaultSuggestModel = "llama-3.1-8b-instant"
)

// ModelInfo describes a chat model offered to clients.
type ModelInfo struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	ContextWindow int    `json:"context_window"`
}

// groqModels is the closed set of models accepted from clients when Groq
// is the provider.
var groqModels = []ModelInfo{
	{ID: "llama-3.3-70b-versatile", Label: "Llama 3.3 70B Versatile", ContextWindow: 131072},
	{ID: "llama-3.1-70b-versatile", Label: "Llama 3.1 70B Versatile", ContextWindow: 131072},
	{ID: "llama-3.1-8b-instant", Label: "Llama 3.1 8B Instant", ContextWindow: 131072},
	{ID: "mixtral-8x7b-32768", Label: "Mixtral 8x7B", ContextWindow: 32768},
	{ID: "gemma2-9b-it", Label: "Gemma 2 9B", ContextWindow: 8192},
}

// SupportedModels returns the models clients may request from providerType.
// Providers other than groq accept any model name and return nil.
func SupportedModels(providerType string) []ModelInfo {
	if providerType != "groq" {
		return nil
	}
	return slices.Clone(groqModels)
}

// IsSupportedModel reports whether model may be requested from providerType.
func IsSupportedModel(providerType, model string) bool {
	models := SupportedModels(providerType)
	if models == nil {
		return model != ""
	}
	return slices.ContainsFunc(models, func(m ModelInfo) bool { return m.ID == model })
}

// SupportedModelIDs returns the ids of SupportedModels.
func SupportedModelIDs(providerType string) []string {
	models := SupportedModels(providerType)
	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}
	return ids
}
