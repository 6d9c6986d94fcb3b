// internal/chat/conversation/config.go
package conversation

import "time"

type Config struct {
	// Cosmetic minimum before a reply replaces the typing placeholder.
	// Data-backed branches use the fast delay, the generative fallback the
	// longer one.
	MinReplyDelayFast     time.Duration
	MinReplyDelayFallback time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		MinReplyDelayFast:     500 * time.Millisecond,
		MinReplyDelayFallback: 1000 * time.Millisecond,
	}
}
