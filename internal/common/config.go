package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Storage     StorageConfig    `toml:"storage"`
	Logging     LoggingConfig    `toml:"logging"`
	Gemini      GeminiConfig     `toml:"gemini"`
	Claude      ClaudeConfig     `toml:"claude"`
	LLM         LLMConfig        `toml:"llm"`
	Embeddings  EmbeddingsConfig `toml:"embeddings"`
	Corpus      CorpusConfig     `toml:"corpus"`
	Analysis    AnalysisConfig   `toml:"analysis"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required_without=InMemory"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`                          // Delete database on startup for clean runs
	InMemory       bool   `toml:"in_memory"`                                 // Keep everything in memory (tests, dry runs)
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=debug info warn error"` // "debug", "info", "warn", "error"
	Output []string `toml:"output" validate:"dive,oneof=stdout console file"`
}

// GeminiConfig contains Google Gemini API configuration for phrase generation
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Chat model (default: "gemini-2.0-flash")
	Timeout     string  `toml:"timeout"`     // Per-call timeout as duration string (default: "2m")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// ClaudeConfig contains Anthropic Claude API configuration for phrase generation
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key
	Model       string  `toml:"model"`       // Model (default: "claude-haiku-4-5")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 4096)
	Timeout     string  `toml:"timeout"`     // Per-call timeout as duration string (default: "2m")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig selects the provider used by the phrase generator
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" validate:"oneof=gemini claude"`
	Model           string      `toml:"model"`      // Optional override, e.g. "claude/claude-sonnet-4-5" or "gemini-2.0-flash"
	RateLimit       string      `toml:"rate_limit"` // Minimum delay between generator calls (default: "6s")
	CacheSize       int         `toml:"cache_size" validate:"gte=0"`
}

// EmbeddingsConfig configures the Gemini embedding backend
type EmbeddingsConfig struct {
	Model     string `toml:"model"`                              // Embedding model (default: "gemini-embedding-001")
	Dimension int    `toml:"dimension" validate:"gt=0"`          // Output dimensionality (default: 768)
	BatchSize int    `toml:"batch_size" validate:"gt=0,lte=250"` // Texts per embedding request (default: 64)
	Timeout   string `toml:"timeout"`                            // Per-batch timeout (default: "2m")
}

// CorpusConfig configures the signal corpus build
type CorpusConfig struct {
	MaxAttempts       int    `toml:"max_attempts" validate:"gte=1"`        // Generator calls per taxonomy leaf (default: 3)
	RetryDelay        string `toml:"retry_delay"`                          // Fixed delay between attempts (default: "3s")
	Concurrency       int    `toml:"concurrency" validate:"gte=1"`         // Leaves generated in parallel (default: 1)
	PhrasesPerKeyword int    `toml:"phrases_per_keyword" validate:"gte=1"` // Phrases requested per leaf (default: 30)
	MinWeight         int    `toml:"min_weight" validate:"gt=0"`           // Lower bound of the requested weight range (default: 50)
	MaxWeight         int    `toml:"max_weight" validate:"gtfield=MinWeight"`
	ClientContext     string `toml:"client_context"` // Business scenario injected into every prompt
}

// AnalysisConfig configures inputs, outputs and scoring
type AnalysisConfig struct {
	TaxonomyPath     string  `toml:"taxonomy_path"`                     // JSON or YAML taxonomy file
	DocumentsPath    string  `toml:"documents_path"`                    // JSON document source file; empty scores the stored documents
	OutputPath       string  `toml:"output_path"`                       // Result file; empty writes to stdout
	Threshold        float64 `toml:"threshold" validate:"gte=-1,lte=1"` // Minimum cosine similarity (default: 0.6)
	Schedule         string  `toml:"schedule"`                          // Optional cron schedule for -watch mode
	ReuseCorpus      bool    `toml:"reuse_corpus"`                      // Score against the latest stored corpus instead of rebuilding
	CorpusID         string  `toml:"corpus_id"`                         // Score against this stored corpus; takes precedence over reuse_corpus
	ReplaceDocuments bool    `toml:"replace_documents"`                 // Clear stored documents before saving the loaded source
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash",
			Timeout:     "2m",
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-4-5",
			MaxTokens:   4096,
			Timeout:     "2m",
			Temperature: 0.7,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
			RateLimit:       "6s", // Free-tier friendly spacing between generator calls
			CacheSize:       1024,
		},
		Embeddings: EmbeddingsConfig{
			Model:     "gemini-embedding-001",
			Dimension: 768,
			BatchSize: 64,
			Timeout:   "2m",
		},
		Corpus: CorpusConfig{
			MaxAttempts:       3,
			RetryDelay:        "3s",
			Concurrency:       1,
			PhrasesPerKeyword: 30,
			MinWeight:         50,
			MaxWeight:         200,
		},
		Analysis: AnalysisConfig{
			TaxonomyPath:  "./risks.json",
			DocumentsPath: "./documents.json",
			Threshold:     0.6,
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files; CLI flags are applied afterwards by the caller.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("RISKPULSE_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Storage configuration
	if badgerPath := os.Getenv("RISKPULSE_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if reset := os.Getenv("RISKPULSE_BADGER_RESET_ON_STARTUP"); reset != "" {
		if r, err := strconv.ParseBool(reset); err == nil {
			config.Storage.Badger.ResetOnStartup = r
		}
	}

	// Logging configuration
	if level := os.Getenv("RISKPULSE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("RISKPULSE_LOG_OUTPUT"); output != "" {
		var outputs []string
		for _, o := range strings.Split(output, ",") {
			if o = strings.TrimSpace(o); o != "" {
				outputs = append(outputs, o)
			}
		}
		config.Logging.Output = outputs
	}

	// LLM configuration
	if provider := os.Getenv("RISKPULSE_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(provider))
	}
	if model := os.Getenv("RISKPULSE_LLM_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if rateLimit := os.Getenv("RISKPULSE_LLM_RATE_LIMIT"); rateLimit != "" {
		config.LLM.RateLimit = rateLimit
	}

	// Corpus configuration
	if concurrency := os.Getenv("RISKPULSE_CORPUS_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Corpus.Concurrency = c
		}
	}
	if clientContext := os.Getenv("RISKPULSE_CLIENT_CONTEXT"); clientContext != "" {
		config.Corpus.ClientContext = clientContext
	}

	// Analysis configuration
	if threshold := os.Getenv("RISKPULSE_THRESHOLD"); threshold != "" {
		if th, err := strconv.ParseFloat(threshold, 64); err == nil {
			config.Analysis.Threshold = th
		}
	}
	if taxonomy := os.Getenv("RISKPULSE_TAXONOMY_PATH"); taxonomy != "" {
		config.Analysis.TaxonomyPath = taxonomy
	}
	if documents := os.Getenv("RISKPULSE_DOCUMENTS_PATH"); documents != "" {
		config.Analysis.DocumentsPath = documents
	}
	if output := os.Getenv("RISKPULSE_OUTPUT_PATH"); output != "" {
		config.Analysis.OutputPath = output
	}
	if corpusID := os.Getenv("RISKPULSE_CORPUS_ID"); corpusID != "" {
		config.Analysis.CorpusID = corpusID
	}
}

// FlagOverrides carries command-line values that take precedence over every other source
type FlagOverrides struct {
	TaxonomyPath  string
	DocumentsPath string
	OutputPath    string
	CorpusID      string
	Threshold     *float64
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, flags FlagOverrides) {
	if flags.TaxonomyPath != "" {
		config.Analysis.TaxonomyPath = flags.TaxonomyPath
	}
	if flags.DocumentsPath != "" {
		config.Analysis.DocumentsPath = flags.DocumentsPath
	}
	if flags.OutputPath != "" {
		config.Analysis.OutputPath = flags.OutputPath
	}
	if flags.CorpusID != "" {
		config.Analysis.CorpusID = flags.CorpusID
	}
	if flags.Threshold != nil {
		config.Analysis.Threshold = *flags.Threshold
	}
}

// Validate checks struct constraints, duration strings and the optional schedule
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"gemini.timeout":     c.Gemini.Timeout,
		"claude.timeout":     c.Claude.Timeout,
		"llm.rate_limit":     c.LLM.RateLimit,
		"embeddings.timeout": c.Embeddings.Timeout,
		"corpus.retry_delay": c.Corpus.RetryDelay,
	}
	for name, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s '%s': %w", name, value, err)
		}
	}

	if c.Analysis.Schedule != "" {
		if err := ValidateSchedule(c.Analysis.Schedule); err != nil {
			return fmt.Errorf("invalid analysis.schedule: %w", err)
		}
	}
	return nil
}

// ValidateSchedule validates a cron schedule expression and ensures a minimum 5-minute interval
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	parts := strings.Fields(schedule)
	if len(parts) < 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}

	minuteField := parts[0]
	if minuteField == "*" {
		return fmt.Errorf("schedule must have minimum 5-minute interval (every minute is not allowed)")
	}
	if strings.HasPrefix(minuteField, "*/") {
		interval, err := strconv.Atoi(strings.TrimPrefix(minuteField, "*/"))
		if err == nil && interval < 5 {
			return fmt.Errorf("schedule interval must be at least 5 minutes, got %d", interval)
		}
	}

	return nil
}

// ParseDurationOr parses value, returning fallback when it is empty or invalid
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// ResolveAPIKey resolves an API key by provider with environment variable priority.
// Resolution order: environment variables -> config fallback -> error
func ResolveAPIKey(provider LLMProvider, configFallback string) (string, error) {
	envNames := map[LLMProvider][]string{
		LLMProviderGemini: {"RISKPULSE_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"},
		LLMProviderClaude: {"RISKPULSE_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
	}

	for _, name := range envNames[provider] {
		if value := os.Getenv(name); value != "" {
			return value, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key for '%s' not found in environment or config", provider)
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
