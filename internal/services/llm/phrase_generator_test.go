package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/riskpulse/internal/models"
)

// fakeContent returns a fixed completion and records every request
type fakeContent struct {
	mu       sync.Mutex
	text     string
	err      error
	requests []*ContentRequest
}

func (f *fakeContent) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, request)
	if f.err != nil {
		return nil, f.err
	}
	return &ContentResponse{Text: f.text, Provider: ProviderGemini, Model: "gemini-2.0-flash"}, nil
}

func (f *fakeContent) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

var tariffLeaf = models.TaxonomyLeaf{Category: "trade", Subcategory: "tariffs", Keyword: "tariff"}

func TestPhraseGenerator_GenerateParsesResponse(t *testing.T) {
	content := &fakeContent{text: `{"bigrams":[{"bigram":"tariff hike","weight":150}]}`}
	gen, err := NewPhraseGenerator(content, PromptConfig{ClientContext: "EU wind developer"}, arbor.NewLogger(),
		WithRateLimit(0), WithModel("gemini-2.0-flash"))
	require.NoError(t, err)

	phrases, err := gen.Generate(context.Background(), tariffLeaf)
	require.NoError(t, err)
	assert.Equal(t, []models.PhraseWeight{{Phrase: "tariff hike", Weight: 150}}, phrases)

	require.Equal(t, 1, content.count())
	req := content.requests[0]
	assert.Equal(t, "gemini-2.0-flash", req.Model)
	assert.True(t, req.JSONOutput)
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Content, "EU wind developer")
	assert.Contains(t, req.Messages[0].Content, "'tariff'")
}

func TestPhraseGenerator_CachesByPrompt(t *testing.T) {
	content := &fakeContent{text: `{"bigrams":[{"bigram":"tariff hike","weight":150}]}`}
	gen, err := NewPhraseGenerator(content, DefaultPromptConfig(), arbor.NewLogger(), WithRateLimit(0))
	require.NoError(t, err)

	first, err := gen.Generate(context.Background(), tariffLeaf)
	require.NoError(t, err)
	first[0].Weight = 1 // Mutating a result must not leak into the cache

	second, err := gen.Generate(context.Background(), tariffLeaf)
	require.NoError(t, err)
	assert.Equal(t, 1, content.count())
	assert.Equal(t, 150.0, second[0].Weight)

	_, err = gen.Generate(context.Background(), models.TaxonomyLeaf{Category: "trade", Subcategory: "tariffs", Keyword: "duties"})
	require.NoError(t, err)
	assert.Equal(t, 2, content.count())
}

func TestPhraseGenerator_CacheDisabled(t *testing.T) {
	content := &fakeContent{text: `{"bigrams":[]}`}
	gen, err := NewPhraseGenerator(content, DefaultPromptConfig(), arbor.NewLogger(), WithRateLimit(0), WithCacheSize(0))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := gen.Generate(context.Background(), tariffLeaf)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, content.count())
}

func TestPhraseGenerator_Errors(t *testing.T) {
	providerErr := &RateLimitError{Provider: ProviderGemini, Delay: time.Second, Err: errors.New("429")}
	gen, err := NewPhraseGenerator(&fakeContent{err: providerErr}, DefaultPromptConfig(), arbor.NewLogger(), WithRateLimit(0))
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), tariffLeaf)
	var rle *RateLimitError
	assert.True(t, errors.As(err, &rle))

	gen, err = NewPhraseGenerator(&fakeContent{text: "sorry, no"}, DefaultPromptConfig(), arbor.NewLogger(), WithRateLimit(0))
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), tariffLeaf)
	assert.True(t, errors.Is(err, ErrUnparseableResponse))
}

func TestPhraseGenerator_RateLimitHonoursContext(t *testing.T) {
	content := &fakeContent{text: `{"bigrams":[]}`}
	gen, err := NewPhraseGenerator(content, DefaultPromptConfig(), arbor.NewLogger(), WithRateLimit(time.Hour), WithCacheSize(0))
	require.NoError(t, err)

	// Burst of one lets the first call through immediately
	_, err = gen.Generate(context.Background(), tariffLeaf)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = gen.Generate(ctx, tariffLeaf)
	require.Error(t, err)
	assert.Equal(t, 1, content.count())
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(PromptConfig{PhraseCount: 12, MinWeight: 10, MaxWeight: 20}, tariffLeaf)
	assert.Contains(t, prompt, "Generate 12 two-word combinations")
	assert.Contains(t, prompt, "(10-20)")
	assert.Contains(t, prompt, "Risk Subcategory: 'tariffs'")
	assert.NotContains(t, prompt, "Client investment context")

	// Invalid ranges fall back to defaults
	fallback := BuildPrompt(PromptConfig{MinWeight: 300, MaxWeight: 100}, tariffLeaf)
	assert.Contains(t, fallback, "Generate 30 two-word")
	assert.Contains(t, fallback, "(50-200)")

	assert.Equal(t, BuildPrompt(DefaultPromptConfig(), tariffLeaf), BuildPrompt(DefaultPromptConfig(), tariffLeaf))
	assert.True(t, strings.HasPrefix(prompt, "You are a risk intelligence agent"))
}
