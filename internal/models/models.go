// Package models builds the configured completion backend.
package models

import (
	"fmt"

	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	openaiopt "github.com/openai/openai-go/option"

	"github.com/lewisedginton/whatsapp_router/internal/completion"
	"github.com/lewisedginton/whatsapp_router/internal/config"
	"github.com/lewisedginton/whatsapp_router/internal/models/anthropic"
	"github.com/lewisedginton/whatsapp_router/internal/models/openai"
	"github.com/lewisedginton/whatsapp_router/pkg/logger"
)

// NewCompleter returns the selected provider wrapped in a timeout and a
// circuit breaker.
func NewCompleter(cfg config.LLMConfig, log logger.Logger) (*completion.Guarded, error) {
	var (
		inner completion.Completer
		err   error
	)

	switch cfg.Provider {
	case config.ProviderOpenAI:
		var opts []openaiopt.RequestOption
		if cfg.OpenAI.APIBaseURL != "" {
			opts = append(opts, openaiopt.WithBaseURL(cfg.OpenAI.APIBaseURL))
		}
		inner, err = openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, opts...)
	case config.ProviderClaude:
		var opts []anthropicopt.RequestOption
		if cfg.Anthropic.APIBaseURL != "" {
			opts = append(opts, anthropicopt.WithBaseURL(cfg.Anthropic.APIBaseURL))
		}
		inner, err = anthropic.NewClaudeModel(cfg.Anthropic.APIKey, cfg.Anthropic.Model, opts...)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s model: %w", cfg.Provider, err)
	}

	log.Info("Completion backend configured",
		logger.ProviderField(cfg.Provider),
		logger.DurationField("timeout", cfg.Timeout),
		logger.IntField("breaker_max_failures", cfg.BreakerMaxFailures))

	return completion.Guard(inner, completion.GuardConfig{
		Provider: cfg.Provider,
		Timeout:  cfg.Timeout,
		Breaker:  completion.NewBreaker(cfg.BreakerMaxFailures, cfg.BreakerResetTimeout),
		Logger:   log,
	}), nil
}
