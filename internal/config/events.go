package config

import "time"

// EventsConfig holds the AMQP activity feed settings
type EventsConfig struct {
	Enabled      bool          `env:"EVENTS_ENABLED" yaml:"enabled"`
	URL          string        `env:"AMQP_URL" yaml:"url"`
	Exchange     string        `env:"AMQP_EXCHANGE" yaml:"exchange" default:"whatsapp.events"`
	DialAttempts int           `env:"AMQP_DIAL_ATTEMPTS" yaml:"dial_attempts" default:"5"`
	DialDelay    time.Duration `env:"AMQP_DIAL_DELAY" yaml:"dial_delay" default:"1s"`
	Producer     string        `env:"EVENTS_PRODUCER" yaml:"producer" default:"whatsapp-router"`

	// PublishTimeout caps each publish, confirm wait included
	PublishTimeout time.Duration `env:"AMQP_PUBLISH_TIMEOUT" yaml:"publish_timeout" default:"2s"`
}
