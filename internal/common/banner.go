package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// AppName is the display name used in the banner and logs
const AppName = "RiskPulse"

// PrintBanner displays the startup banner and logs the effective run settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.PrintSimple(AppName, GetVersion())

	logger.Info().
		Str("version", GetFullVersion()).
		Str("environment", config.Environment).
		Str("provider", string(config.LLM.DefaultProvider)).
		Str("embedding_model", config.Embeddings.Model).
		Float64("threshold", config.Analysis.Threshold).
		Msg("Starting " + AppName)
}
