package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// Completer produces the next assistant message for a conversation.
type Completer interface {
	Complete(ctx context.Context, system string, history []Message) (string, error)
}

// SiteInfo feeds the system prompt.
type SiteInfo struct {
	CompanyName   string
	Sections      []string
	PropertyTypes []string
	HappyClients  string
	Properties    string
	Experience    string
	Phone         string
	Email         string
}

// DefaultSite describes the Estatein dashboard.
var DefaultSite = SiteInfo{
	CompanyName:   "Estatein",
	Sections:      []string{"Properties", "Stats", "Achievements", "Team", "Office Location", "FAQ", "Reviews", "Client"},
	PropertyTypes: []string{"Apartments", "Villas", "Stores", "Lands"},
	HappyClients:  "200",
	Properties:    "10k+",
	Experience:    "16+",
	Phone:         "+966112345678",
	Email:         "support@esty.com",
}

// SystemPrompt renders the fixed instructions sent ahead of every
// conversation.
func (s SiteInfo) SystemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an assistant for the real estate dashboard %q.\n", s.CompanyName)
	fmt.Fprintf(&b, "Dashboard sections: %s.\n", strings.Join(s.Sections, ", "))
	fmt.Fprintf(&b, "Property types: %s.\n", strings.Join(s.PropertyTypes, ", "))
	fmt.Fprintf(&b, "Statistics: %s happy customers, %s properties, %s years experience.\n", s.HappyClients, s.Properties, s.Experience)
	fmt.Fprintf(&b, "Contact information: phone %s, email %s.\n", s.Phone, s.Email)
	b.WriteString("Respond in a helpful and professional manner focused on dashboard functionality.")
	return b.String()
}

// OpenAICompleter calls an OpenAI compatible chat completion endpoint.
type OpenAICompleter struct {
	client openai.Client
	model  string
}

// NewOpenAICompleter creates a completer. baseURL may point at any
// compatible provider such as OpenRouter.
func NewOpenAICompleter(apiKey, baseURL, model string) *OpenAICompleter {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAICompleter{client: openai.NewClient(opts...), model: model}
}

func (c *OpenAICompleter) Complete(ctx context.Context, system string, history []Message) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	msgs = append(msgs, openai.SystemMessage(system))
	for _, m := range history {
		switch m.Role {
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: msgs,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: no choices returned")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("chat completion: empty message")
	}
	return content, nil
}
