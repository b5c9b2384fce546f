package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/riskpulse/internal/interfaces"
	"github.com/ternarybob/riskpulse/internal/models"
)

// RunStorage implements the RunStorage interface for Badger
type RunStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRunStorage creates a new RunStorage instance
func NewRunStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RunStorage {
	return &RunStorage{
		db:     db,
		logger: logger,
	}
}

func (s *RunStorage) SaveRun(ctx context.Context, run *models.AnalysisRun) error {
	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}
	if err := s.db.Store().Upsert(run.ID, run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

func (s *RunStorage) GetRun(ctx context.Context, id string) (*models.AnalysisRun, error) {
	var run models.AnalysisRun
	if err := s.db.Store().Get(id, &run); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("run %s: %w", id, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns returns all runs, most recent first
func (s *RunStorage) ListRuns(ctx context.Context) ([]*models.AnalysisRun, error) {
	var runs []models.AnalysisRun
	if err := s.db.Store().Find(&runs, badgerhold.Where("ID").Ne("").SortBy("StartedAt").Reverse()); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	result := make([]*models.AnalysisRun, len(runs))
	for i := range runs {
		result[i] = &runs[i]
	}
	return result, nil
}
