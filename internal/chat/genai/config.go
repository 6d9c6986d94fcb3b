// internal/chat/genai/config.go
package genai

import "time"

type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxRetries  int
	MaxTokens   int
	Temperature float64
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:     15 * time.Second,
		MaxRetries:  1,
		MaxTokens:   800,
		Temperature: 0.7,
	}
}
