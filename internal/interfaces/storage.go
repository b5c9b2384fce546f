// -----------------------------------------------------------------------
// Last Modified: Thursday, 15th October 2026 9:12:40 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/riskpulse/internal/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// CorpusStorage - interface for signal corpus persistence
type CorpusStorage interface {
	SaveCorpus(ctx context.Context, corpus *models.Corpus) error
	GetCorpus(ctx context.Context, id string) (*models.Corpus, error)
	GetLatestCorpus(ctx context.Context) (*models.Corpus, error)
}

// DocumentStorage - interface for scored document persistence
type DocumentStorage interface {
	SaveDocuments(ctx context.Context, docs map[string]models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context) (map[string]models.Document, error)
	CountDocuments(ctx context.Context) (int, error)
	ClearAll(ctx context.Context) error
}

// RunStorage - interface for analysis run persistence
type RunStorage interface {
	SaveRun(ctx context.Context, run *models.AnalysisRun) error
	GetRun(ctx context.Context, id string) (*models.AnalysisRun, error)
	ListRuns(ctx context.Context) ([]*models.AnalysisRun, error)
}

// StorageManager - groups the storage interfaces behind one connection
type StorageManager interface {
	CorpusStorage() CorpusStorage
	DocumentStorage() DocumentStorage
	RunStorage() RunStorage
	Close() error
}
