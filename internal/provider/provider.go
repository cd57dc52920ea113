package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/MEKXH/gitmind/internal/config"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	defaultClaudeModel = "claude-3-5-haiku-latest"
	defaultOllamaModel = "llama3.1"
	defaultOllamaURL   = "http://localhost:11434"
	defaultMaxTokens   = 256
	requestTimeout     = 60 * time.Second
)

// NewChatModel creates the chat model selected by cfg.Provider.
func NewChatModel(ctx context.Context, cfg config.SuggestConfig) (model.BaseChatModel, error) {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires suggest.api_key")
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     orDefault(cfg.Model, defaultOpenAIModel),
			MaxTokens: &maxTokens,
			Timeout:   requestTimeout,
		})
	case "claude":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("claude provider requires suggest.api_key")
		}
		c := &claude.Config{
			APIKey:    cfg.APIKey,
			Model:     orDefault(cfg.Model, defaultClaudeModel),
			MaxTokens: maxTokens,
		}
		if cfg.BaseURL != "" {
			baseURL := cfg.BaseURL
			c.BaseURL = &baseURL
		}
		return claude.NewChatModel(ctx, c)
	case "ollama":
		return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: orDefault(cfg.BaseURL, defaultOllamaURL),
			Model:   orDefault(cfg.Model, defaultOllamaModel),
			Timeout: requestTimeout,
		})
	case "":
		return nil, fmt.Errorf("no provider configured: set suggest.provider")
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
