package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/riskpulse/internal/interfaces"
	"github.com/ternarybob/riskpulse/internal/models"
)

// documentRecord is the stored form of a document.
// Dates are kept as their formatted bucket key so the gob encoding stays concrete.
type documentRecord struct {
	ID        string
	Date      string
	Embedding []float32
	Title     string
	URL       string
	Text      string
	StoredAt  time.Time
}

func toRecord(id string, doc models.Document, now time.Time) documentRecord {
	date, _ := models.FormatDate(doc.Date)
	return documentRecord{
		ID:        id,
		Date:      date,
		Embedding: doc.Embedding,
		Title:     doc.Title,
		URL:       doc.URL,
		Text:      doc.Text,
		StoredAt:  now,
	}
}

func (r documentRecord) toDocument() models.Document {
	doc := models.Document{
		ID:        r.ID,
		Embedding: r.Embedding,
		Title:     r.Title,
		URL:       r.URL,
		Text:      r.Text,
	}
	if r.Date != "" {
		doc.Date = r.Date
	}
	return doc
}

// DocumentStorage implements the DocumentStorage interface for Badger
type DocumentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDocumentStorage creates a new DocumentStorage instance
func NewDocumentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DocumentStorage {
	return &DocumentStorage{
		db:     db,
		logger: logger,
	}
}

// SaveDocuments upserts every document in one transaction, keyed by map id
func (s *DocumentStorage) SaveDocuments(ctx context.Context, docs map[string]models.Document) error {
	if len(docs) == 0 {
		return nil
	}

	now := time.Now()
	err := s.db.Store().Badger().Update(func(tx *badger.Txn) error {
		for id, doc := range docs {
			if id == "" {
				return fmt.Errorf("document ID is required")
			}
			record := toRecord(id, doc, now)
			if err := s.db.Store().TxUpsert(tx, id, &record); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save documents: %w", err)
	}

	s.logger.Debug().Int("documents", len(docs)).Msg("Documents saved")
	return nil
}

func (s *DocumentStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var record documentRecord
	if err := s.db.Store().Get(id, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("document %s: %w", id, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	doc := record.toDocument()
	return &doc, nil
}

func (s *DocumentStorage) ListDocuments(ctx context.Context) (map[string]models.Document, error) {
	var records []documentRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("ID").Ne("")); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	docs := make(map[string]models.Document, len(records))
	for _, r := range records {
		docs[r.ID] = r.toDocument()
	}
	return docs, nil
}

func (s *DocumentStorage) CountDocuments(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&documentRecord{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return int(count), nil
}

func (s *DocumentStorage) ClearAll(ctx context.Context) error {
	if err := s.db.Store().DeleteMatching(&documentRecord{}, nil); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	return nil
}
