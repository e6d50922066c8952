package config

import "time"

// StoreConfig sizes the in-memory conversation store
type StoreConfig struct {
	TTL             time.Duration `env:"STORE_TTL" yaml:"ttl" default:"24h"`
	Shards          int           `env:"STORE_SHARDS" yaml:"shards" default:"32"`
	ShardCapacity   int           `env:"STORE_SHARD_CAPACITY" yaml:"shard_capacity" default:"4096"`
	JanitorInterval time.Duration `env:"STORE_JANITOR_INTERVAL" yaml:"janitor_interval" default:"5m"`
}
