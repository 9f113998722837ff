package factory

import (
	"fmt"

	"noa-assistant-be/pkg/llm"
	"noa-assistant-be/pkg/llm/anthropic"
	"noa-assistant-be/pkg/llm/ollama"
	"noa-assistant-be/pkg/llm/openai"
)

const huggingFaceRouter = "https://router.huggingface.co/v1"

// Config selects and configures a language model backend.
type Config struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

func NewLLMProvider(cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.NewOllamaProvider(cfg.BaseURL, cfg.Model), nil
	case "openai":
		return openai.NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case "huggingface":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = huggingFaceRouter
		}
		return openai.NewOpenAIProvider(cfg.APIKey, baseURL, cfg.Model), nil
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider needs an api key")
		}
		return anthropic.NewAnthropicProvider(cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
