package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// HTTPServerConfig holds HTTP server settings
type HTTPServerConfig struct {
	// Port is the TCP port for the webhook server
	Port int `env:"HTTP_PORT" yaml:"port" default:"8080"`

	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" yaml:"write_timeout" default:"60s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" yaml:"idle_timeout" default:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout" default:"10s"`

	// RequestTimeout bounds a single request, including the outbound send and completion call
	RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" yaml:"request_timeout" default:"45s"`

	// MaxHeaderBytes controls the maximum number of bytes the server will read parsing request headers
	MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" yaml:"max_header_bytes" default:"1048576"`
}

// Validate checks port range and timeouts
func (h HTTPServerConfig) Validate() error {
	var result error
	if h.Port < 1 || h.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("http port must be between 1-65535, got %d", h.Port))
	}
	if h.RequestTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("http request timeout must be greater than 0"))
	}
	if h.WriteTimeout > 0 && h.WriteTimeout < h.RequestTimeout {
		result = multierror.Append(result, fmt.Errorf("http write timeout (%s) must not be shorter than the request timeout (%s)", h.WriteTimeout, h.RequestTimeout))
	}
	return result
}

// Addr returns the listen address for the configured port
func (h HTTPServerConfig) Addr() string {
	return fmt.Sprintf(":%d", h.Port)
}
