package api

import "time"

// Config holds configuration for the HTTP API.
type Config struct {
	// Addr is the listen address.
	Addr string
	// PingInterval is how often websocket clients are pinged; a client that
	// misses two pings is dropped.
	PingInterval time.Duration
	// WriteTimeout bounds a single websocket write.
	WriteTimeout time.Duration
	// ClientBuffer is the per-client outbound message queue.
	// A client whose queue is full misses messages.
	ClientBuffer int
	// NewsLimit is the default and maximum bulletin count of /api/news.
	NewsLimit int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Addr:         ":8080",
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
		ClientBuffer: 32,
		NewsLimit:    20,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.PingInterval <= 0 {
		c.PingInterval = def.PingInterval
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.ClientBuffer <= 0 {
		c.ClientBuffer = def.ClientBuffer
	}
	if c.NewsLimit <= 0 {
		c.NewsLimit = def.NewsLimit
	}
	return c
}
