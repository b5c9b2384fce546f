package llm

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"google.golang.org/genai"

	"github.com/ternarybob/riskpulse/internal/interfaces"
)

// validateMessages requires a non-empty conversation with at least one user turn
func validateMessages(messages []interfaces.Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("messages cannot be empty")
	}
	for _, msg := range messages {
		if msg.Role == "user" {
			return nil
		}
	}
	return fmt.Errorf("at least one message must have role 'user'")
}

// convertMessagesToClaude converts messages to Claude format.
// The first system message is returned separately; later ones are dropped.
func convertMessagesToClaude(messages []interfaces.Message) ([]anthropic.MessageParam, string, error) {
	if err := validateMessages(messages); err != nil {
		return nil, "", err
	}

	claudeMessages := make([]anthropic.MessageParam, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if systemText == "" {
				systemText = msg.Content
			}
		case "assistant":
			claudeMessages = append(claudeMessages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	return claudeMessages, systemText, nil
}

// convertMessagesToGemini converts messages to Gemini contents, mapping assistant to the model role
func convertMessagesToGemini(messages []interfaces.Message) ([]*genai.Content, string, error) {
	if err := validateMessages(messages); err != nil {
		return nil, "", err
	}

	contents := make([]*genai.Content, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		role := genai.RoleUser
		if msg.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}

	return contents, systemText, nil
}
