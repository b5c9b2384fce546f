package embeddings

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/ternarybob/riskpulse/internal/common"
	"github.com/ternarybob/riskpulse/internal/services/llm"
)

// GeminiClientSource supplies a lazily created Gemini client
type GeminiClientSource interface {
	GetGeminiClient(ctx context.Context) (*genai.Client, error)
}

// GeminiBackend embeds texts with the Gemini embedding API
type GeminiBackend struct {
	clients   GeminiClientSource
	model     string
	dimension int
	timeout   time.Duration
}

// NewGeminiBackend creates a Gemini embedding backend from the [embeddings] section
func NewGeminiBackend(clients GeminiClientSource, config *common.EmbeddingsConfig) *GeminiBackend {
	model := config.Model
	if model == "" {
		model = "gemini-embedding-001"
	}
	return &GeminiBackend{
		clients:   clients,
		model:     model,
		dimension: config.Dimension,
		timeout:   common.ParseDurationOr(config.Timeout, 2*time.Minute),
	}
}

// ModelName returns the embedding model
func (b *GeminiBackend) ModelName() string {
	return b.model
}

// EmbedBatch sends one content per text in a single EmbedContent call
func (b *GeminiBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	client, err := b.clients.GetGeminiClient(ctx)
	if err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	config := &genai.EmbedContentConfig{}
	if b.dimension > 0 {
		outputDim := int32(b.dimension)
		config.OutputDimensionality = &outputDim
	}

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	result, err := client.Models.EmbedContent(callCtx, b.model, contents, config)
	if err != nil {
		if llm.IsRateLimitError(err) {
			return nil, &llm.RateLimitError{Provider: llm.ProviderGemini, Delay: llm.ExtractRetryDelay(err), Err: err}
		}
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}
	if result == nil || len(result.Embeddings) != len(texts) {
		got := 0
		if result != nil {
			got = len(result.Embeddings)
		}
		return nil, fmt.Errorf("expected %d embeddings from API, got %d", len(texts), got)
	}

	vectors := make([][]float32, len(texts))
	for i, e := range result.Embeddings {
		if e == nil {
			return nil, fmt.Errorf("no embedding returned for text %d", i)
		}
		vectors[i] = e.Values
	}
	return vectors, nil
}
