// Package signals builds the weighted, embedded phrase corpus that documents are scored against.
package signals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/riskpulse/internal/interfaces"
	"github.com/ternarybob/riskpulse/internal/models"
)

// ErrEmbeddingFailure is returned when the corpus phrases could not be embedded.
// No partial corpus is ever returned alongside it.
var ErrEmbeddingFailure = errors.New("embedding failure")

// Builder turns a risk taxonomy into a flat list of signal entries
type Builder struct {
	generator   interfaces.PhraseGenerator
	embedder    interfaces.Embedder
	retry       RetryPolicy
	concurrency int
	logger      arbor.ILogger
}

// Option configures a Builder
type Option func(*Builder)

// WithRetryPolicy sets the per-leaf retry policy
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(b *Builder) {
		b.retry = policy
	}
}

// WithConcurrency sets how many taxonomy leaves are generated in parallel
func WithConcurrency(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBuilder creates a corpus builder
func NewBuilder(generator interfaces.PhraseGenerator, embedder interfaces.Embedder, logger arbor.ILogger, opts ...Option) *Builder {
	b := &Builder{
		generator:   generator,
		embedder:    embedder,
		retry:       DefaultRetryPolicy(),
		concurrency: 1,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build generates phrases for every taxonomy leaf, embeds each unique phrase once
// and returns one entry per (phrase, category, subcategory, keyword) record.
// Failing leaves are skipped; an embedding failure fails the whole build.
func (b *Builder) Build(ctx context.Context, taxonomy models.Taxonomy) ([]models.SignalEntry, error) {
	leaves := taxonomy.Leaves()
	start := time.Now()

	b.logger.Info().
		Int("leaves", len(leaves)).
		Int("concurrency", b.concurrency).
		Int("max_attempts", b.retry.attempts()).
		Msg("Building signal corpus")

	collected, err := b.collect(ctx, leaves)
	if err != nil {
		return nil, err
	}

	acc := newAccumulator()
	for _, lp := range collected {
		if rejected := acc.add(lp); rejected > 0 {
			b.logger.Warn().
				Str("leaf", lp.leaf.String()).
				Int("rejected", rejected).
				Msg("Dropped phrases with empty text or non-positive weight")
		}
	}

	phrases := acc.uniquePhrases()
	if len(phrases) == 0 {
		b.logger.Warn().Msg("No phrases generated, signal corpus is empty")
		return []models.SignalEntry{}, nil
	}

	b.logger.Info().
		Int("unique_phrases", len(phrases)).
		Int("records", acc.recordCount()).
		Msg("Generating embeddings for unique phrases in one batch")

	vectors, err := b.embed(ctx, phrases)
	if err != nil {
		b.logger.Error().Err(err).Msg("Signal corpus embedding failed")
		return nil, err
	}

	entries := acc.materialize(vectors)

	b.logger.Info().
		Int("entries", len(entries)).
		Int("unique_phrases", len(phrases)).
		Dur("duration", time.Since(start)).
		Msg("Signal corpus built")

	return entries, nil
}

// collect runs the generator for every leaf and returns results in leaf order.
// Each leaf owns its slot so parallel workers never share mutable state.
func (b *Builder) collect(ctx context.Context, leaves []models.TaxonomyLeaf) ([]leafPhrases, error) {
	results := make([]leafPhrases, len(leaves))

	if b.concurrency <= 1 {
		for i, leaf := range leaves {
			phrases, err := b.generateLeaf(ctx, leaf)
			if err != nil {
				return nil, err
			}
			results[i] = leafPhrases{leaf: leaf, phrases: phrases}
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, leaf := range leaves {
		g.Go(func() error {
			phrases, err := b.generateLeaf(gctx, leaf)
			if err != nil {
				return err
			}
			results[i] = leafPhrases{leaf: leaf, phrases: phrases}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// generateLeaf calls the generator with bounded retries.
// It only returns an error when the context is done; exhausted retries skip the leaf.
func (b *Builder) generateLeaf(ctx context.Context, leaf models.TaxonomyLeaf) ([]models.PhraseWeight, error) {
	maxAttempts := b.retry.attempts()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		phrases, err := b.generator.Generate(ctx, leaf)
		if err == nil {
			b.logger.Debug().
				Str("leaf", leaf.String()).
				Int("phrases", len(phrases)).
				Int("attempt", attempt).
				Msg("Generated phrases")
			return phrases, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("phrase generation cancelled: %w", ctxErr)
		}

		lastErr = err
		if attempt == maxAttempts {
			break
		}

		delay := b.retry.delayFor(err)
		b.logger.Warn().
			Str("leaf", leaf.String()).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Err(err).
			Msg("Phrase generation attempt failed")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("phrase generation cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	b.logger.Error().
		Str("leaf", leaf.String()).
		Int("attempts", maxAttempts).
		Err(lastErr).
		Msg("Skipping taxonomy leaf after exhausting retries")
	return nil, nil
}

// embed computes one vector per phrase and checks the batch is consistent
func (b *Builder) embed(ctx context.Context, phrases []string) ([][]float32, error) {
	vectors, err := b.embedder.Embed(ctx, phrases)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailure, err)
	}
	if len(vectors) != len(phrases) {
		return nil, fmt.Errorf("%w: expected %d vectors, got %d", ErrEmbeddingFailure, len(phrases), len(vectors))
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: empty vector for phrase %q", ErrEmbeddingFailure, phrases[0])
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector for phrase %q has dimension %d, expected %d", ErrEmbeddingFailure, phrases[i], len(v), dim)
		}
	}
	return vectors, nil
}
