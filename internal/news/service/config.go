package service

import "github.com/zappabad/agriflow/internal/news"

// Config holds configuration for the news service.
type Config struct {
	// Rules decide which refreshes produce bulletins.
	Rules news.Rules
	// TapeSize is the capacity of the bulletin ring buffer.
	TapeSize int
	// EventBuffer is the size of the internal event channel.
	EventBuffer int
	// ExternalEventBuffer is the size of the external events channel.
	ExternalEventBuffer int
	// DropExternalEvents determines whether external event channel drops on overflow.
	DropExternalEvents bool
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Rules:               news.DefaultRules(),
		TapeSize:            100,
		EventBuffer:         256,
		ExternalEventBuffer: 256,
		DropExternalEvents:  true,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Rules == (news.Rules{}) {
		c.Rules = def.Rules
	}
	if c.TapeSize <= 0 {
		c.TapeSize = def.TapeSize
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = def.EventBuffer
	}
	if c.ExternalEventBuffer <= 0 {
		c.ExternalEventBuffer = def.ExternalEventBuffer
	}
	return c
}
