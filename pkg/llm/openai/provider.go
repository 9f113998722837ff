package openai

import (
	"context"
	"errors"
	"fmt"

	"noa-assistant-be/pkg/llm"

	goopenai "github.com/sashabaranov/go-openai"
)

const defaultModel = "gpt-4o-mini"

type OpenAIProvider struct {
	client *goopenai.Client
	model  string
}

var _ llm.LLMProvider = (*OpenAIProvider)(nil)

// NewOpenAIProvider talks to the OpenAI API, or to any compatible endpoint
// when baseURL is set.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &OpenAIProvider{client: goopenai.NewClientWithConfig(cfg), model: model}
}

func (p *OpenAIProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	if p.client == nil {
		return "", errors.New("openai client not initialized")
	}
	options := &llm.Options{Model: p.model, Temperature: 0.4}
	for _, opt := range opts {
		opt(options)
	}

	msgs := make([]goopenai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: role(m.Role), Content: m.Content})
	}

	req := goopenai.ChatCompletionRequest{
		Model:       options.Model,
		Messages:    msgs,
		Temperature: float32(options.Temperature),
	}
	if options.MaxTokens > 0 {
		req.MaxTokens = options.MaxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: goopenai.ChatMessageRoleUser, Content: prompt}}, opts...)
}

func role(r string) string {
	switch r {
	case goopenai.ChatMessageRoleSystem, goopenai.ChatMessageRoleAssistant:
		return r
	case "model":
		return goopenai.ChatMessageRoleAssistant
	default:
		return goopenai.ChatMessageRoleUser
	}
}
