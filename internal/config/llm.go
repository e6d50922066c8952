package config

import "time"

// LLM provider constants
const (
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
)

// LLMConfig holds LLM provider selection and the guard around completion calls
type LLMConfig struct {
	// Provider specifies which LLM provider to use: "claude" or "openai"
	Provider string        `env:"LLM_PROVIDER" yaml:"provider" default:"openai"`
	Timeout  time.Duration `env:"LLM_TIMEOUT" yaml:"timeout" default:"15s"`

	BreakerMaxFailures  int           `env:"LLM_BREAKER_MAX_FAILURES" yaml:"breaker_max_failures" default:"5"`
	BreakerResetTimeout time.Duration `env:"LLM_BREAKER_RESET_TIMEOUT" yaml:"breaker_reset_timeout" default:"30s"`

	OpenAI    OpenAIConfig    `yaml:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
}

// OpenAIConfig holds OpenAI-specific configuration
type OpenAIConfig struct {
	APIKey     string `env:"OPENAI_API_KEY" yaml:"api_key"`
	Model      string `env:"OPENAI_MODEL" yaml:"model" default:"gpt-4o-mini"`
	APIBaseURL string `env:"OPENAI_API_URL" yaml:"api_base_url" default:"https://api.openai.com/v1"`
}

// AnthropicConfig holds Anthropic-specific configuration
type AnthropicConfig struct {
	APIKey     string `env:"ANTHROPIC_API_KEY" yaml:"api_key"`
	Model      string `env:"CLAUDE_MODEL" yaml:"model" default:"claude-sonnet-4-5-20250929"`
	APIBaseURL string `env:"ANTHROPIC_API_URL" yaml:"api_base_url" default:"https://api.anthropic.com"`
}

// APIKey returns the key for the selected provider
func (c LLMConfig) APIKey() string {
	switch c.Provider {
	case ProviderClaude:
		return c.Anthropic.APIKey
	case ProviderOpenAI:
		return c.OpenAI.APIKey
	}
	return ""
}
