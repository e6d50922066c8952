package config

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	pkgconfig "github.com/lewisedginton/whatsapp_router/pkg/config"
)

// AppConfig holds all application configuration
type AppConfig struct {
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
	Router   RouterConfig   `yaml:"router"`
	LLM      LLMConfig      `yaml:"llm"`
	Store    StoreConfig    `yaml:"store"`
	Events   EventsConfig   `yaml:"events"`
	Security SecurityConfig `yaml:"security"`
	Health   HealthConfig   `yaml:"health"`

	Logging pkgconfig.LoggingConfig    `yaml:"logging"`
	HTTP    pkgconfig.HTTPServerConfig `yaml:"http"`
	Metrics pkgconfig.MetricsConfig    `yaml:"metrics"`
}

// Load reads configPath (optional) and overlays environment variables.
func Load(configPath string) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := pkgconfig.GetConfig(cfg, configPath, false); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration and returns every problem found
func (c *AppConfig) Validate() error {
	var result error

	for _, section := range []pkgconfig.Validator{c.Logging, c.HTTP, c.Metrics} {
		if err := section.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if c.WhatsApp.SendTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("whatsapp send timeout must be greater than 0"))
	}

	if c.Router.MaxOutputTokens <= 0 {
		result = multierror.Append(result, fmt.Errorf("ai max output tokens must be greater than 0, got %d", c.Router.MaxOutputTokens))
	}
	if c.Router.AIFallbackEnabled {
		switch c.LLM.Provider {
		case ProviderOpenAI, ProviderClaude:
			if c.LLM.APIKey() == "" {
				result = multierror.Append(result, fmt.Errorf("ai fallback with provider %q requires its api key", c.LLM.Provider))
			}
		default:
			result = multierror.Append(result, fmt.Errorf("llm provider must be %q or %q, got %q", ProviderOpenAI, ProviderClaude, c.LLM.Provider))
		}
		if c.LLM.Timeout <= 0 {
			result = multierror.Append(result, fmt.Errorf("llm timeout must be greater than 0"))
		}
		if c.LLM.BreakerMaxFailures < 1 {
			result = multierror.Append(result, fmt.Errorf("llm breaker max failures must be at least 1"))
		}
	}

	if c.Store.Shards < 1 || c.Store.ShardCapacity < 1 {
		result = multierror.Append(result, fmt.Errorf("store shards and shard capacity must be at least 1"))
	}
	if c.Store.TTL < 0 || c.Store.JanitorInterval <= 0 {
		result = multierror.Append(result, fmt.Errorf("store ttl must not be negative and janitor interval must be positive"))
	}

	if c.Events.Enabled {
		if c.Events.URL == "" {
			result = multierror.Append(result, fmt.Errorf("events require an amqp url"))
		}
		if c.Events.Exchange == "" {
			result = multierror.Append(result, fmt.Errorf("events require an amqp exchange"))
		}
	}

	if c.Security.MaxRequestSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("max_request_size must be greater than 0"))
	}
	if c.Security.RateLimitEnabled && (c.Security.RateLimitRPS <= 0 || c.Security.RateLimitBurst < 1) {
		result = multierror.Append(result, fmt.Errorf("rate limit rps and burst must be positive when rate limiting is enabled"))
	}

	if c.Health.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("health timeout must be greater than 0"))
	}

	return result
}
