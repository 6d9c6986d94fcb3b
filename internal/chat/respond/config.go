// internal/chat/respond/config.go
package respond

import "time"

type Config struct {
	Timeout           time.Duration
	MaxExampleRecords int
	TopLocations      int
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:           10 * time.Second,
		MaxExampleRecords: 5,
		TopLocations:      5,
	}
}
