package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

// LoggingConfig holds log level and output format
type LoggingConfig struct {
	// Level is the minimum log level to output: debug, info, warn, error
	Level string `env:"LOG_LEVEL" yaml:"level" default:"info"`

	// Format is either json or text
	Format string `env:"LOG_FORMAT" yaml:"format" default:"json"`
}

// Validate checks the level and format values
func (c LoggingConfig) Validate() error {
	var result error
	if !slices.Contains(validLogLevels, strings.ToLower(c.Level)) {
		result = multierror.Append(result, fmt.Errorf("log level must be one of %v, got %q", validLogLevels, c.Level))
	}
	if c.Format != "json" && c.Format != "text" {
		result = multierror.Append(result, fmt.Errorf("log format must be either 'json' or 'text', got %q", c.Format))
	}
	return result
}
