package embeddings

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/riskpulse/internal/interfaces"
	"github.com/ternarybob/riskpulse/internal/models"
)

// DefaultBatchSize is the number of texts sent per backend call
const DefaultBatchSize = 64

// BatchEmbedder is a backend that embeds one batch of texts per call
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// Service implements interfaces.Embedder by splitting inputs into backend-sized batches
// and checking that every returned vector has the same dimension.
type Service struct {
	backend   BatchEmbedder
	batchSize int
	dimension int // expected dimension, 0 accepts whatever the first vector has
	logger    arbor.ILogger
}

var _ interfaces.Embedder = (*Service)(nil)

// NewService creates a new embedding service
func NewService(backend BatchEmbedder, batchSize, dimension int, logger arbor.ILogger) *Service {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Service{
		backend:   backend,
		batchSize: batchSize,
		dimension: dimension,
		logger:    logger,
	}
}

// Embed returns one vector per text, in input order
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	start := time.Now()
	vectors := make([][]float32, 0, len(texts))
	dim := s.dimension

	for offset := 0; offset < len(texts); offset += s.batchSize {
		end := min(offset+s.batchSize, len(texts))
		batch := texts[offset:end]

		out, err := s.backend.EmbedBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d failed: %w", offset, end, err)
		}
		if len(out) != len(batch) {
			return nil, fmt.Errorf("embedding batch %d-%d returned %d vectors for %d texts", offset, end, len(out), len(batch))
		}

		for i, v := range out {
			if len(v) == 0 {
				return nil, fmt.Errorf("empty embedding for text %d", offset+i)
			}
			if dim == 0 {
				dim = len(v)
			}
			if len(v) != dim {
				return nil, fmt.Errorf("embedding dimension mismatch for text %d: expected %d, got %d", offset+i, dim, len(v))
			}
		}
		vectors = append(vectors, out...)

		s.logger.Debug().
			Int("batch_start", offset).
			Int("batch_size", len(batch)).
			Msg("Embedded batch")
	}

	s.logger.Debug().
		Str("model", s.backend.ModelName()).
		Int("texts", len(texts)).
		Int("embedding_dim", dim).
		Dur("duration", time.Since(start)).
		Msg("Generated embeddings")

	return vectors, nil
}

// EmbedDocuments fills in embeddings for documents that have text but no vector.
// It returns the number of documents embedded.
func (s *Service) EmbedDocuments(ctx context.Context, docs map[string]models.Document) (int, error) {
	var ids []string
	for id, doc := range docs {
		if len(doc.Embedding) == 0 && prepareDocumentText(doc) != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	sort.Strings(ids)

	texts := make([]string, len(ids))
	for i, id := range ids {
		texts[i] = prepareDocumentText(docs[id])
	}

	vectors, err := s.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed documents: %w", err)
	}

	for i, id := range ids {
		doc := docs[id]
		doc.Embedding = vectors[i]
		docs[id] = doc
	}

	s.logger.Info().
		Int("embedded", len(ids)).
		Int("documents", len(docs)).
		Msg("Embedded documents missing vectors")

	return len(ids), nil
}

// prepareDocumentText combines title and text for embedding
func prepareDocumentText(doc models.Document) string {
	title := strings.TrimSpace(doc.Title)
	text := strings.TrimSpace(doc.Text)
	switch {
	case title == "":
		return text
	case text == "":
		return title
	default:
		return title + "\n\n" + text
	}
}
