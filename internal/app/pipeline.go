package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ternarybob/riskpulse/internal/documents"
	"github.com/ternarybob/riskpulse/internal/interfaces"
	"github.com/ternarybob/riskpulse/internal/models"
	"github.com/ternarybob/riskpulse/internal/taxonomy"
)

// analysisJob is the scheduler job name used by Watch
const analysisJob = "analysis"

// RunAnalysis runs the full batch: corpus, documents, scoring, persistence and output
func (a *App) RunAnalysis(ctx context.Context) (*models.AnalysisRun, error) {
	cfg := a.Config.Analysis
	run := &models.AnalysisRun{
		ID:        uuid.NewString(),
		Threshold: cfg.Threshold,
		StartedAt: time.Now(),
	}

	corpus, err := a.loadCorpus(ctx)
	if err != nil {
		return nil, err
	}
	run.CorpusID = corpus.ID

	docs, err := a.loadDocuments(ctx)
	if err != nil {
		return nil, err
	}
	run.DocumentCount = len(docs)

	result, err := a.Aggregator.Score(corpus.Entries, docs, cfg.Threshold)
	if err != nil {
		return nil, fmt.Errorf("scoring failed: %w", err)
	}
	run.Result = result
	run.CompletedAt = time.Now()

	if err := a.StorageManager.RunStorage().SaveRun(ctx, run); err != nil {
		return nil, err
	}

	if err := a.writeResult(result); err != nil {
		return nil, err
	}

	a.Logger.Info().
		Str("run_id", run.ID).
		Str("corpus_id", run.CorpusID).
		Int("documents", run.DocumentCount).
		Int("matched", result.Matched).
		Int("skipped", result.Skipped).
		Dur("duration", run.CompletedAt.Sub(run.StartedAt)).
		Msg("Analysis run complete")

	return run, nil
}

// BuildCorpus generates, embeds and stores a new signal corpus from the configured taxonomy
func (a *App) BuildCorpus(ctx context.Context) (*models.Corpus, error) {
	tax, err := taxonomy.Load(a.Config.Analysis.TaxonomyPath)
	if err != nil {
		return nil, err
	}

	entries, err := a.CorpusBuilder.Build(ctx, tax)
	if err != nil {
		return nil, fmt.Errorf("corpus build failed: %w", err)
	}

	corpus := &models.Corpus{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Entries:   entries,
	}
	if err := a.StorageManager.CorpusStorage().SaveCorpus(ctx, corpus); err != nil {
		return nil, err
	}
	return corpus, nil
}

// loadCorpus returns the pinned corpus, or the latest stored one when reuse is configured,
// otherwise builds a fresh one
func (a *App) loadCorpus(ctx context.Context) (*models.Corpus, error) {
	if id := a.Config.Analysis.CorpusID; id != "" {
		corpus, err := a.StorageManager.CorpusStorage().GetCorpus(ctx, id)
		if err != nil {
			return nil, err
		}
		a.Logger.Info().
			Str("corpus_id", corpus.ID).
			Int("entries", len(corpus.Entries)).
			Msg("Using pinned signal corpus")
		return corpus, nil
	}

	if a.Config.Analysis.ReuseCorpus {
		corpus, err := a.StorageManager.CorpusStorage().GetLatestCorpus(ctx)
		if err == nil {
			a.Logger.Info().
				Str("corpus_id", corpus.ID).
				Int("entries", len(corpus.Entries)).
				Msg("Reusing stored signal corpus")
			return corpus, nil
		}
		if !errors.Is(err, interfaces.ErrNotFound) {
			return nil, err
		}
		a.Logger.Info().Msg("No stored corpus, building a new one")
	}
	return a.BuildCorpus(ctx)
}

// loadDocuments reads the document source, embeds documents that only carry text and stores them.
// Without a source path the documents already in storage are scored.
func (a *App) loadDocuments(ctx context.Context) (map[string]models.Document, error) {
	store := a.StorageManager.DocumentStorage()

	path := a.Config.Analysis.DocumentsPath
	if path == "" {
		docs, err := store.ListDocuments(ctx)
		if err != nil {
			return nil, err
		}
		a.Logger.Info().Int("documents", len(docs)).Msg("Scoring stored documents")
		return docs, nil
	}

	docs, err := documents.Load(path)
	if err != nil {
		return nil, err
	}

	if _, err := a.EmbeddingService.EmbedDocuments(ctx, docs); err != nil {
		return nil, err
	}

	if a.Config.Analysis.ReplaceDocuments {
		if err := store.ClearAll(ctx); err != nil {
			return nil, err
		}
	}
	if err := store.SaveDocuments(ctx, docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (a *App) writeResult(result *models.AggregationResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	data = append(data, '\n')

	path := a.Config.Analysis.OutputPath
	if path == "" {
		_, err := a.Output.Write(data)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	a.Logger.Info().Str("path", path).Msg("Result written")
	return nil
}

// Watch runs the analysis immediately and then on analysis.schedule until ctx is done
func (a *App) Watch(ctx context.Context) error {
	schedule := a.Config.Analysis.Schedule
	if schedule == "" {
		return fmt.Errorf("analysis.schedule is required for watch mode")
	}

	err := a.SchedulerService.RegisterJob(analysisJob, schedule, func(jobCtx context.Context) error {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(jobCtx, cancel)
		defer stop()

		_, err := a.RunAnalysis(runCtx)
		return err
	})
	if err != nil {
		return err
	}

	if err := a.SchedulerService.TriggerJob(analysisJob); err != nil {
		return err
	}

	a.SchedulerService.Start()
	<-ctx.Done()
	a.SchedulerService.Stop()
	return nil
}
