package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/riskpulse/internal/interfaces"
	"github.com/ternarybob/riskpulse/internal/models"
)

// CorpusStorage implements the CorpusStorage interface for Badger
type CorpusStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCorpusStorage creates a new CorpusStorage instance
func NewCorpusStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CorpusStorage {
	return &CorpusStorage{
		db:     db,
		logger: logger,
	}
}

func (s *CorpusStorage) SaveCorpus(ctx context.Context, corpus *models.Corpus) error {
	if corpus.ID == "" {
		return fmt.Errorf("corpus ID is required")
	}
	if corpus.CreatedAt.IsZero() {
		corpus.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(corpus.ID, corpus); err != nil {
		return fmt.Errorf("failed to save corpus: %w", err)
	}

	s.logger.Debug().
		Str("corpus_id", corpus.ID).
		Int("entries", len(corpus.Entries)).
		Msg("Corpus saved")
	return nil
}

func (s *CorpusStorage) GetCorpus(ctx context.Context, id string) (*models.Corpus, error) {
	var corpus models.Corpus
	if err := s.db.Store().Get(id, &corpus); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("corpus %s: %w", id, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get corpus: %w", err)
	}
	return &corpus, nil
}

func (s *CorpusStorage) GetLatestCorpus(ctx context.Context) (*models.Corpus, error) {
	var corpora []models.Corpus
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse().Limit(1)
	if err := s.db.Store().Find(&corpora, query); err != nil {
		return nil, fmt.Errorf("failed to find latest corpus: %w", err)
	}
	if len(corpora) == 0 {
		return nil, fmt.Errorf("latest corpus: %w", interfaces.ErrNotFound)
	}
	return &corpora[0], nil
}
