package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/whatsapp_router/internal/completion"
	"github.com/lewisedginton/whatsapp_router/internal/config"
	"github.com/lewisedginton/whatsapp_router/pkg/logger"
)

func TestNewCompleter(t *testing.T) {
	base := config.LLMConfig{
		Timeout:             time.Second,
		BreakerMaxFailures:  3,
		BreakerResetTimeout: time.Minute,
		OpenAI:              config.OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o-mini"},
		Anthropic:           config.AnthropicConfig{APIKey: "sk-ant", Model: "claude-test"},
	}

	tests := []struct {
		name     string
		provider string
		mutate   func(*config.LLMConfig)
		wantErr  bool
	}{
		{name: "openai", provider: config.ProviderOpenAI},
		{name: "claude", provider: config.ProviderClaude},
		{name: "unknown provider", provider: "gemini", wantErr: true},
		{name: "missing key", provider: config.ProviderOpenAI, mutate: func(c *config.LLMConfig) { c.OpenAI.APIKey = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.Provider = tt.provider
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			c, err := NewCompleter(cfg, logger.NewNopLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, c.Breaker())
			assert.Equal(t, completion.StateClosed, c.Breaker().State())
		})
	}
}
