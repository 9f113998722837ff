package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"noa-assistant-be/pkg/llm"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 1024

type AnthropicProvider struct {
	client *sdk.Client
	model  string
}

var _ llm.LLMProvider = (*AnthropicProvider)(nil)

func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = string(sdk.ModelClaude4Sonnet20250514)
	}
	return &AnthropicProvider{client: &client, model: model}
}

// Chat moves system messages into the system prompt and merges consecutive
// turns of the same role, since the API wants strictly alternating turns
// starting with the user.
func (p *AnthropicProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := &llm.Options{Model: p.model, Temperature: 0.4, MaxTokens: defaultMaxTokens}
	for _, opt := range opts {
		opt(options)
	}

	system, turns := split(history)
	if len(turns) == 0 {
		return "", errors.New("anthropic: no user message to answer")
	}

	params := sdk.MessageNewParams{
		Model:       sdk.Model(options.Model),
		MaxTokens:   int64(options.MaxTokens),
		Messages:    turns,
		Temperature: sdk.Float(options.Temperature),
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(sdk.TextBlock); ok {
			out.WriteString(text.Text)
		}
	}
	return out.String(), nil
}

func (p *AnthropicProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

type turn struct {
	assistant bool
	text      []string
}

func split(history []llm.Message) (string, []sdk.MessageParam) {
	var (
		system []string
		turns  []turn
	)
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		assistant := m.Role == "assistant" || m.Role == "model"
		if len(turns) == 0 && assistant {
			continue
		}
		if n := len(turns); n > 0 && turns[n-1].assistant == assistant {
			turns[n-1].text = append(turns[n-1].text, m.Content)
			continue
		}
		turns = append(turns, turn{assistant: assistant, text: []string{m.Content}})
	}

	out := make([]sdk.MessageParam, 0, len(turns))
	for _, t := range turns {
		block := sdk.NewTextBlock(strings.Join(t.text, "\n\n"))
		if t.assistant {
			out = append(out, sdk.NewAssistantMessage(block))
		} else {
			out = append(out, sdk.NewUserMessage(block))
		}
	}
	return strings.Join(system, "\n\n"), out
}
