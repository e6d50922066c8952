package config

// RouterConfig controls how intents map to replies
type RouterConfig struct {
	AIFallbackEnabled bool   `env:"AI_FALLBACK_ENABLED" yaml:"ai_fallback_enabled"`
	SystemPrompt      string `env:"AI_SYSTEM_PROMPT" yaml:"system_prompt" default:"You are a helpful, friendly assistant."`
	MaxOutputTokens   int    `env:"AI_MAX_OUTPUT_TOKENS" yaml:"max_output_tokens" default:"200"`
	FormURL           string `env:"FORM_URL" yaml:"form_url" default:"https://forms.gle/uutX4rXkh1LXqUXe9"`
}
