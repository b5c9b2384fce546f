package app

import (
	"fmt"
	"io"
	"os"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/riskpulse/internal/common"
	"github.com/ternarybob/riskpulse/internal/interfaces"
	"github.com/ternarybob/riskpulse/internal/pulse"
	"github.com/ternarybob/riskpulse/internal/services/embeddings"
	"github.com/ternarybob/riskpulse/internal/services/llm"
	"github.com/ternarybob/riskpulse/internal/services/scheduler"
	"github.com/ternarybob/riskpulse/internal/signals"
	"github.com/ternarybob/riskpulse/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// LLM provider shared by phrase generation and Gemini embeddings
	ProviderFactory *llm.ProviderFactory

	PhraseGenerator  interfaces.PhraseGenerator
	EmbeddingBackend embeddings.BatchEmbedder
	EmbeddingService *embeddings.Service

	CorpusBuilder *signals.Builder
	Aggregator    *pulse.Aggregator

	SchedulerService *scheduler.Service

	// Output receives the result JSON when analysis.output_path is empty
	Output io.Writer
}

// Option overrides a component before services are wired
type Option func(*App)

// WithStorageManager uses an already opened storage manager
func WithStorageManager(sm interfaces.StorageManager) Option {
	return func(a *App) { a.StorageManager = sm }
}

// WithPhraseGenerator replaces the LLM phrase generator
func WithPhraseGenerator(gen interfaces.PhraseGenerator) Option {
	return func(a *App) { a.PhraseGenerator = gen }
}

// WithEmbeddingBackend replaces the Gemini embedding backend
func WithEmbeddingBackend(backend embeddings.BatchEmbedder) Option {
	return func(a *App) { a.EmbeddingBackend = backend }
}

// WithOutput sets where results go when no output path is configured
func WithOutput(w io.Writer) Option {
	return func(a *App) { a.Output = w }
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger, opts ...Option) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
		Output: os.Stdout,
	}
	for _, opt := range opts {
		opt(app)
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info().
		Str("taxonomy", cfg.Analysis.TaxonomyPath).
		Str("documents", cfg.Analysis.DocumentsPath).
		Int("concurrency", cfg.Corpus.Concurrency).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	if a.StorageManager != nil {
		return nil
	}
	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}
	a.StorageManager = storageManager
	return nil
}

// initServices wires the generator, embedder, corpus builder and aggregator
func (a *App) initServices() error {
	cfg := a.Config

	a.ProviderFactory = llm.NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, a.Logger)

	if a.PhraseGenerator == nil {
		generator, err := llm.NewPhraseGenerator(
			a.ProviderFactory,
			llm.PromptConfig{
				ClientContext: cfg.Corpus.ClientContext,
				PhraseCount:   cfg.Corpus.PhrasesPerKeyword,
				MinWeight:     cfg.Corpus.MinWeight,
				MaxWeight:     cfg.Corpus.MaxWeight,
			},
			a.Logger,
			llm.WithModel(cfg.LLM.Model),
			llm.WithRateLimit(common.ParseDurationOr(cfg.LLM.RateLimit, llm.DefaultRateLimit)),
			llm.WithCacheSize(cfg.LLM.CacheSize),
		)
		if err != nil {
			return fmt.Errorf("failed to create phrase generator: %w", err)
		}
		a.PhraseGenerator = generator
	}

	if a.EmbeddingBackend == nil {
		a.EmbeddingBackend = embeddings.NewGeminiBackend(a.ProviderFactory, &cfg.Embeddings)
	}
	a.EmbeddingService = embeddings.NewService(a.EmbeddingBackend, cfg.Embeddings.BatchSize, cfg.Embeddings.Dimension, a.Logger)

	a.CorpusBuilder = signals.NewBuilder(
		a.PhraseGenerator,
		a.EmbeddingService,
		a.Logger,
		signals.WithRetryPolicy(signals.RetryPolicy{
			MaxAttempts: cfg.Corpus.MaxAttempts,
			Delay:       common.ParseDurationOr(cfg.Corpus.RetryDelay, signals.DefaultRetryDelay),
		}),
		signals.WithConcurrency(cfg.Corpus.Concurrency),
	)

	a.Aggregator = pulse.NewAggregator(a.Logger)
	a.SchedulerService = scheduler.NewService(a.Logger)

	a.Logger.Debug().
		Str("provider", string(cfg.LLM.DefaultProvider)).
		Str("embedding_model", a.EmbeddingBackend.ModelName()).
		Msg("Services initialized")
	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	if a.SchedulerService != nil && a.SchedulerService.IsRunning() {
		a.SchedulerService.Stop()
	}

	if a.ProviderFactory != nil {
		if err := a.ProviderFactory.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM providers")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
