package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/riskpulse/internal/common"
	"github.com/ternarybob/riskpulse/internal/interfaces"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
)

// ContentRequest represents a provider-agnostic content generation request
type ContentRequest struct {
	Messages          []interfaces.Message
	Model             string
	Temperature       float32
	MaxTokens         int
	SystemInstruction string
	JSONOutput        bool // Ask the provider for a bare JSON body where supported (Gemini only)
}

// ContentResponse represents a provider-agnostic content generation response
type ContentResponse struct {
	Text     string
	Provider ProviderType
	Model    string
}

// ContentGenerator produces a text completion for a request
type ContentGenerator interface {
	GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error)
}

// ProviderFactory creates provider clients lazily and routes requests by model name.
// It makes exactly one API call per request; retries belong to the caller.
type ProviderFactory struct {
	geminiConfig *common.GeminiConfig
	claudeConfig *common.ClaudeConfig
	llmConfig    *common.LLMConfig
	logger       arbor.ILogger

	mu           sync.Mutex
	geminiClient *genai.Client
	claudeClient *anthropic.Client
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(
	geminiConfig *common.GeminiConfig,
	claudeConfig *common.ClaudeConfig,
	llmConfig *common.LLMConfig,
	logger arbor.ILogger,
) *ProviderFactory {
	return &ProviderFactory{
		geminiConfig: geminiConfig,
		claudeConfig: claudeConfig,
		llmConfig:    llmConfig,
		logger:       logger,
	}
}

// DetectProvider determines the provider type from a model string.
// Model strings can be:
// - "claude-haiku-4-5" -> Claude
// - "claude/claude-haiku-4-5" or "anthropic/..." -> Claude (with prefix)
// - "gemini-2.0-flash" -> Gemini
// - "gemini/gemini-2.0-flash" or "google/..." -> Gemini (with prefix)
// - Empty string -> uses default provider from config
func (f *ProviderFactory) DetectProvider(model string) ProviderType {
	model = strings.ToLower(model)

	switch {
	case model == "":
	case strings.HasPrefix(model, "claude/"), strings.HasPrefix(model, "anthropic/"), strings.HasPrefix(model, "claude-"):
		return ProviderClaude
	case strings.HasPrefix(model, "gemini/"), strings.HasPrefix(model, "google/"), strings.HasPrefix(model, "gemini-"):
		return ProviderGemini
	}

	if f.llmConfig.DefaultProvider == common.LLMProviderClaude {
		return ProviderClaude
	}
	return ProviderGemini
}

// NormalizeModel removes provider prefix from model name if present
func (f *ProviderFactory) NormalizeModel(model string) string {
	for _, prefix := range []string{"claude/", "anthropic/", "gemini/", "google/"} {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// GetDefaultModel returns the default model for a provider
func (f *ProviderFactory) GetDefaultModel(provider ProviderType) string {
	if provider == ProviderClaude {
		return f.claudeConfig.Model
	}
	return f.geminiConfig.Model
}

// GetGeminiClient returns a Gemini client, creating one if necessary.
// The embedding backend shares this client.
func (f *ProviderFactory) GetGeminiClient(ctx context.Context) (*genai.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.geminiClient != nil {
		return f.geminiClient, nil
	}

	apiKey, err := common.ResolveAPIKey(common.LLMProviderGemini, f.geminiConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Gemini API key: %w", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	f.geminiClient = client
	return client, nil
}

// GetClaudeClient returns a Claude client, creating one if necessary
func (f *ProviderFactory) GetClaudeClient() (*anthropic.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.claudeClient != nil {
		return f.claudeClient, nil
	}

	apiKey, err := common.ResolveAPIKey(common.LLMProviderClaude, f.claudeConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Anthropic API key: %w", err)
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	f.claudeClient = &client
	return f.claudeClient, nil
}

// GenerateContent generates content using the appropriate provider based on model
func (f *ProviderFactory) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	provider := f.DetectProvider(request.Model)
	model := f.NormalizeModel(request.Model)
	if model == "" {
		model = f.GetDefaultModel(provider)
	}

	f.logger.Debug().
		Str("provider", string(provider)).
		Str("model", model).
		Int("message_count", len(request.Messages)).
		Msg("Generating content with provider")

	var (
		resp *ContentResponse
		err  error
	)
	switch provider {
	case ProviderClaude:
		resp, err = f.generateWithClaude(ctx, request, model)
	default:
		resp, err = f.generateWithGemini(ctx, request, model)
	}
	return resp, classifyError(provider, err)
}

// generateWithClaude generates content using Claude API
func (f *ProviderFactory) generateWithClaude(ctx context.Context, request *ContentRequest, model string) (*ContentResponse, error) {
	client, err := f.GetClaudeClient()
	if err != nil {
		return nil, err
	}

	claudeMessages, systemText, err := convertMessagesToClaude(request.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}
	if request.SystemInstruction != "" {
		systemText = request.SystemInstruction
	}

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = f.claudeConfig.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  claudeMessages,
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = f.claudeConfig.Temperature
	}
	if temp > 0 {
		params.Temperature = anthropic.Float(float64(temp))
	}
	if systemText != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemText}}
	}

	callCtx, cancel := withTimeout(ctx, f.claudeConfig.Timeout)
	defer cancel()

	resp, err := client.Messages.New(callCtx, params)
	if err != nil {
		return nil, fmt.Errorf("Claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from Claude API")
	}

	return &ContentResponse{
		Text:     text.String(),
		Provider: ProviderClaude,
		Model:    model,
	}, nil
}

// generateWithGemini generates content using Gemini API
func (f *ProviderFactory) generateWithGemini(ctx context.Context, request *ContentRequest, model string) (*ContentResponse, error) {
	client, err := f.GetGeminiClient(ctx)
	if err != nil {
		return nil, err
	}

	geminiContents, systemText, err := convertMessagesToGemini(request.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}
	if request.SystemInstruction != "" {
		systemText = request.SystemInstruction
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = f.geminiConfig.Temperature
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temp),
	}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}
	if request.JSONOutput {
		config.ResponseMIMEType = "application/json"
	}

	callCtx, cancel := withTimeout(ctx, f.geminiConfig.Timeout)
	defer cancel()

	resp, err := client.Models.GenerateContent(callCtx, model, geminiContents, config)
	if err != nil {
		return nil, fmt.Errorf("Gemini API call failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini API")
	}

	responseText := resp.Text()
	if responseText == "" {
		return nil, fmt.Errorf("empty text in Gemini response")
	}

	return &ContentResponse{
		Text:     responseText,
		Provider: ProviderGemini,
		Model:    model,
	}, nil
}

// withTimeout bounds a single call by the configured duration string
func withTimeout(ctx context.Context, timeout string) (context.Context, context.CancelFunc) {
	d := common.ParseDurationOr(timeout, 2*time.Minute)
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Close releases provider clients; later calls create new ones
func (f *ProviderFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.geminiClient = nil
	f.claudeClient = nil
	return nil
}
