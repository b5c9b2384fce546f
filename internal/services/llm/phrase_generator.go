package llm

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/riskpulse/internal/interfaces"
	"github.com/ternarybob/riskpulse/internal/models"
)

// DefaultRateLimit is the minimum spacing between generator API calls
const DefaultRateLimit = 6 * time.Second

// PhraseGenerator asks an LLM for weighted phrases per taxonomy leaf.
// Responses are cached by prompt text and calls are spaced by a token bucket.
type PhraseGenerator struct {
	content ContentGenerator
	prompt  PromptConfig
	model   string
	limiter *rate.Limiter
	cache   *lru.Cache[string, []models.PhraseWeight]
	logger  arbor.ILogger
}

var _ interfaces.PhraseGenerator = (*PhraseGenerator)(nil)

// GeneratorOption configures a PhraseGenerator
type GeneratorOption func(*generatorSettings)

type generatorSettings struct {
	model     string
	rateLimit time.Duration
	cacheSize int
}

// WithModel routes requests to a specific model (prefix selects the provider)
func WithModel(model string) GeneratorOption {
	return func(s *generatorSettings) { s.model = model }
}

// WithRateLimit sets the minimum delay between calls; zero disables limiting
func WithRateLimit(every time.Duration) GeneratorOption {
	return func(s *generatorSettings) { s.rateLimit = every }
}

// WithCacheSize sets the number of cached prompts; zero disables caching
func WithCacheSize(size int) GeneratorOption {
	return func(s *generatorSettings) { s.cacheSize = size }
}

// NewPhraseGenerator creates a phrase generator over a content provider
func NewPhraseGenerator(content ContentGenerator, prompt PromptConfig, logger arbor.ILogger, opts ...GeneratorOption) (*PhraseGenerator, error) {
	settings := generatorSettings{
		rateLimit: DefaultRateLimit,
		cacheSize: 1024,
	}
	for _, opt := range opts {
		opt(&settings)
	}

	g := &PhraseGenerator{
		content: content,
		prompt:  prompt,
		model:   settings.model,
		logger:  logger,
	}

	if settings.rateLimit > 0 {
		g.limiter = rate.NewLimiter(rate.Every(settings.rateLimit), 1)
	}

	if settings.cacheSize > 0 {
		cache, err := lru.New[string, []models.PhraseWeight](settings.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create prompt cache: %w", err)
		}
		g.cache = cache
	}

	return g, nil
}

// Generate returns weighted phrases for one taxonomy leaf
func (g *PhraseGenerator) Generate(ctx context.Context, leaf models.TaxonomyLeaf) ([]models.PhraseWeight, error) {
	prompt := BuildPrompt(g.prompt, leaf)

	if g.cache != nil {
		if cached, ok := g.cache.Get(prompt); ok {
			g.logger.Debug().Str("leaf", leaf.String()).Msg("Phrase cache hit")
			return append([]models.PhraseWeight(nil), cached...), nil
		}
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	start := time.Now()
	resp, err := g.content.GenerateContent(ctx, &ContentRequest{
		Messages:   []interfaces.Message{{Role: "user", Content: prompt}},
		Model:      g.model,
		JSONOutput: true,
	})
	if err != nil {
		return nil, err
	}

	phrases, err := ParsePhrases(resp.Text)
	if err != nil {
		g.logger.Debug().
			Str("leaf", leaf.String()).
			Int("response_length", len(resp.Text)).
			Msg("Could not parse phrase response")
		return nil, err
	}

	g.logger.Debug().
		Str("leaf", leaf.String()).
		Str("provider", string(resp.Provider)).
		Str("model", resp.Model).
		Int("phrases", len(phrases)).
		Dur("duration", time.Since(start)).
		Msg("Phrase response parsed")

	if g.cache != nil {
		g.cache.Add(prompt, append([]models.PhraseWeight(nil), phrases...))
	}
	return phrases, nil
}
