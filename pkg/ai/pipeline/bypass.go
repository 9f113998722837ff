package pipeline

import (
	"context"
	_ "embed"
	"errors"
	"strings"
	"time"

	"noa-assistant-be/internal/pkg/logger"
	"noa-assistant-be/pkg/llm"
)

//go:embed persona.md
var defaultPersona string

var (
	ErrEmptyCompletion = errors.New("language model returned an empty reply")
	ErrEmptyQuery      = errors.New("empty query")
)

// BypassConfig tunes the direct language model call.
type BypassConfig struct {
	Persona       string
	Timeout       time.Duration
	MaxTokens     int
	ModelOverride string
}

// BypassPipeline sends the message straight to the language model, wrapped
// in the persona preamble and the recent conversation.
type BypassPipeline struct {
	llmProvider llm.LLMProvider
	cfg         BypassConfig
	logger      logger.ILogger
}

func NewBypassPipeline(llmProvider llm.LLMProvider, log logger.ILogger, cfg BypassConfig) *BypassPipeline {
	if strings.TrimSpace(cfg.Persona) == "" {
		cfg.Persona = defaultPersona
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 600
	}
	return &BypassPipeline{llmProvider: llmProvider, cfg: cfg, logger: log}
}

// Execute makes a single attempt bounded by the configured timeout.
func (p *BypassPipeline) Execute(ctx context.Context, query string, history []llm.Message) (string, error) {
	if p.llmProvider == nil {
		return "", errors.New("no language model configured")
	}
	if strings.TrimSpace(query) == "" {
		return "", ErrEmptyQuery
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: p.cfg.Persona})
	for _, m := range history {
		if m.Role == "system" || strings.TrimSpace(m.Content) == "" {
			continue
		}
		messages = append(messages, m)
	}
	messages = append(messages, llm.Message{Role: "user", Content: query})

	opts := []llm.Option{llm.WithMaxTokens(p.cfg.MaxTokens)}
	if p.cfg.ModelOverride != "" {
		opts = append(opts, llm.WithModel(p.cfg.ModelOverride))
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	response, err := p.llmProvider.Chat(ctx, messages, opts...)
	if err != nil {
		p.logger.Warn(logModule, "Language model call failed", map[string]interface{}{
			"error":    err.Error(),
			"messages": len(messages),
			"elapsed":  time.Since(start).String(),
		})
		return "", err
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return "", ErrEmptyCompletion
	}

	p.logger.Debug(logModule, "Language model replied", map[string]interface{}{
		"messages": len(messages),
		"elapsed":  time.Since(start).String(),
	})
	return response, nil
}
