package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// CountTokens returns the number of cl100k tokens in text. Llama models use
// a different vocabulary, so this is an approximation; it falls back to
// EstimateTokens when the encoding cannot be loaded. The BPE ranks are
// compiled in, so counting never touches the network.
func CountTokens(text string) int {
	encOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		e, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
		if err == nil {
			enc = e
		}
	})
	if enc == nil {
		return EstimateTokens(text)
	}
	return len(enc.Encode(text, nil, nil))
}

// EstimateTokens provides a rough token count estimation for the given text.
// Uses the approximation of 1 token per 4 characters.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		return 1
	}
	return n
}

// CountMessageTokens sums CountTokens over every message plus a small
// per-message framing overhead.
func CountMessageTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += CountTokens(m.Content) + 4
	}
	return total
}

// modelPricing holds per-model pricing in USD per 1M tokens.
type modelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

var priceTable = map[string]modelPricing{
	"llama-3.3-70b-versatile": {InputPerMillion: 0.59, OutputPerMillion: 0.79},
	"llama-3.1-70b-versatile": {InputPerMillion: 0.59, OutputPerMillion: 0.79},
	"llama-3.1-8b-instant":    {InputPerMillion: 0.05, OutputPerMillion: 0.08},
	"mixtral-8x7b-32768":      {InputPerMillion: 0.24, OutputPerMillion: 0.24},
	"gemma2-9b-it":            {InputPerMillion: 0.20, OutputPerMillion: 0.20},

	"gpt-4o":      {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"gpt-4o-mini": {InputPerMillion: 0.15, OutputPerMillion: 0.60},

	"claude-haiku-4-5-20251001":  {InputPerMillion: 1.00, OutputPerMillion: 5.00},
	"claude-sonnet-4-5-20250929": {InputPerMillion: 3.00, OutputPerMillion: 15.00},

	"gemini-2.0-flash": {InputPerMillion: 0.10, OutputPerMillion: 0.40},
}

// EstimateCost returns the estimated cost in USD for the given model and token counts.
// Returns 0 if the model is not found in the price table.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	pricing, ok := priceTable[model]
	if !ok {
		return 0
	}
	return float64(inputTokens)/1_000_000.0*pricing.InputPerMillion +
		float64(outputTokens)/1_000_000.0*pricing.OutputPerMillion
}
