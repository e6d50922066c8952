package config

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" yaml:"cors_allowed_origins" default:"*"`
	MaxRequestSize     int64    `env:"MAX_REQUEST_SIZE" yaml:"max_request_size" default:"1048576"` // 1MB default
	RateLimitEnabled   bool     `env:"RATE_LIMIT_ENABLED" yaml:"rate_limit_enabled"`
	RateLimitRPS       float64  `env:"RATE_LIMIT_RPS" yaml:"rate_limit_rps" default:"20"`
	RateLimitBurst     int      `env:"RATE_LIMIT_BURST" yaml:"rate_limit_burst" default:"40"`
}
