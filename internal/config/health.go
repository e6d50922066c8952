package config

import "time"

// HealthConfig holds health check configuration
type HealthConfig struct {
	Timeout          time.Duration `env:"HEALTH_TIMEOUT" yaml:"timeout" default:"5s"`
	FailureThreshold int           `env:"HEALTH_FAILURE_THRESHOLD" yaml:"failure_threshold" default:"3"`
	// CheckGraph adds a readiness probe against the Graph API base URL
	CheckGraph bool `env:"HEALTH_CHECK_GRAPH" yaml:"check_graph"`
}
