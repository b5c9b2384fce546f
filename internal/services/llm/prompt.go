package llm

import (
	"fmt"
	"strings"

	"github.com/ternarybob/riskpulse/internal/models"
)

// PromptConfig controls the phrase generation prompt
type PromptConfig struct {
	ClientContext string // Free-text investor profile placed at the top of every prompt
	PhraseCount   int
	MinWeight     int
	MaxWeight     int
}

// DefaultPromptConfig asks for 30 phrases weighted 50-200
func DefaultPromptConfig() PromptConfig {
	return PromptConfig{
		PhraseCount: 30,
		MinWeight:   50,
		MaxWeight:   200,
	}
}

// BuildPrompt renders the bigram prompt for one taxonomy leaf.
// Identical inputs always render identical text, which the response cache relies on.
func BuildPrompt(cfg PromptConfig, leaf models.TaxonomyLeaf) string {
	defaults := DefaultPromptConfig()
	if cfg.PhraseCount <= 0 {
		cfg.PhraseCount = defaults.PhraseCount
	}
	if cfg.MinWeight <= 0 || cfg.MaxWeight <= cfg.MinWeight {
		cfg.MinWeight, cfg.MaxWeight = defaults.MinWeight, defaults.MaxWeight
	}

	var b strings.Builder
	b.WriteString("You are a risk intelligence agent specializing in identifying political risks.\n")
	if ctx := strings.TrimSpace(cfg.ClientContext); ctx != "" {
		b.WriteString("Client investment context:\n")
		b.WriteString(ctx)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, `
TASK: Generate investment-relevant political risk bigrams

CONTEXT:
- Risk Category: '%s'
- Risk Subcategory: '%s'
- Focus Keyword: '%s'

INSTRUCTIONS:
Generate %d two-word combinations (bigrams) that would frequently appear in political discussions
related to the specified risk parameters. These bigrams should:

1. Strongly indicate political discourse about this specific risk
2. Be directly relevant to the client's investment context and sector
3. Typically appear in news articles, policy documents, or political statements
4. Function effectively as signals when found near other risk-related terms

For each bigram, assign an importance weight (%d-%d) reflecting how strongly it indicates
discussion of this political risk (higher = stronger indicator).

OUTPUT FORMAT:
Return only a valid JSON object with this exact structure:
{"bigrams": [{"bigram": "example term", "weight": 150}, {"bigram": "another example", "weight": 120}]}
`, leaf.Category, leaf.Subcategory, leaf.Keyword, cfg.PhraseCount, cfg.MinWeight, cfg.MaxWeight)

	return b.String()
}
