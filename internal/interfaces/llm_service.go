package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/riskpulse/internal/models"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// PhraseGenerator produces weighted risk phrases for one taxonomy leaf.
// Implementations are usually LLM-backed and may fail transiently; callers own retries.
type PhraseGenerator interface {
	Generate(ctx context.Context, leaf models.TaxonomyLeaf) ([]models.PhraseWeight, error)
}

// RetryHinter is implemented by errors that carry a provider-suggested retry delay
type RetryHinter interface {
	RetryAfter() time.Duration
}
