package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/riskpulse/internal/app"
	"github.com/ternarybob/riskpulse/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles   configPaths // Multiple -config flags supported
	taxonomyPath  = flag.String("taxonomy", "", "Risk taxonomy file, JSON or YAML (overrides config)")
	documentsPath = flag.String("documents", "", "Document source file (overrides config)")
	outputPath    = flag.String("out", "", "Result file; stdout when empty (overrides config)")
	corpusID      = flag.String("corpus", "", "Score against a stored corpus by id (overrides config)")
	threshold     = flag.Float64("threshold", 0.6, "Minimum cosine similarity for a match (overrides config)")
	watch         = flag.Bool("watch", false, "Re-run on analysis.schedule until interrupted")
	showVersion   = flag.Bool("version", false, "Print version information")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", common.AppName, common.GetFullVersion())
		os.Exit(0)
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("riskpulse.toml"); err == nil {
			configFiles = append(configFiles, "riskpulse.toml")
		} else if _, err := os.Stat("deployments/local/riskpulse.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/riskpulse.toml")
		}
	}

	// 1. Load configuration (defaults -> file1 -> file2 -> ... -> env)
	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Error().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	// 2. Apply command-line flag overrides (highest priority)
	overrides := common.FlagOverrides{
		TaxonomyPath:  *taxonomyPath,
		DocumentsPath: *documentsPath,
		OutputPath:    *outputPath,
		CorpusID:      *corpusID,
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "threshold" {
			overrides.Threshold = threshold
		}
	})
	common.ApplyFlagOverrides(config, overrides)
	if err := config.Validate(); err != nil {
		arbor.NewLogger().Error().Err(err).Msg("Invalid command-line overrides")
		os.Exit(1)
	}

	// 3. Initialize logger with final configuration
	logger := common.InitLogger(config)

	// 4. Print banner with configuration and logger
	common.PrintBanner(config, logger)

	logger.Debug().
		Strs("config_files", configFiles).
		Str("badger_path", config.Storage.Badger.Path).
		Str("log_level", config.Logging.Level).
		Strs("log_output", config.Logging.Output).
		Msg("Resolved configuration")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config, logger); err != nil {
		logger.Error().Err(err).Msg("Run failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, config *common.Config, logger arbor.ILogger) error {
	application, err := app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	if *watch {
		logger.Info().Str("schedule", config.Analysis.Schedule).Msg("Watch mode - Press Ctrl+C to stop")
		return application.Watch(ctx)
	}

	_, err = application.RunAnalysis(ctx)
	return err
}
