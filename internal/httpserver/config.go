package httpserver

import (
	"fmt"
	"strings"
)

const defaultListenAddr = ":8080"

// Config aggregates runtime settings for the gift-card API.
type Config struct {
	ListenAddr     string
	AllowedOrigins []string
	SigningKey     string
}

// Validate ensures the configuration contains sane values.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if len(cfg.SigningKey) == 0 {
		return fmt.Errorf("auth signing key is required")
	}
	return nil
}
