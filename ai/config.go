// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Provider names accepted in Config.Provider.
const (
	ProviderLexical = "lexical"
	ProviderOpenAI  = "openai"
)

// Config holds configuration for annotation providers.
type Config struct {
	// Provider selects the annotation backend: "lexical" or "openai".
	Provider string `mapstructure:"provider" yaml:"provider"`

	// Host is the base URL of the OpenAI-compatible service.
	// Example: "http://localhost:11434/v1" for a local server
	Host string `mapstructure:"host" yaml:"host"`

	// Model is the chat model used for annotation.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	Model string `mapstructure:"model" yaml:"model"`

	// FrameLexicon is an optional YAML file replacing the built-in frame
	// lexicon of the lexical provider.
	FrameLexicon string `mapstructure:"frame_lexicon" yaml:"frame_lexicon"`

	// RequestsPerSecond caps calls to the backend. Zero disables the limit.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`

	// Burst is the number of calls allowed above the steady rate.
	// Default: 1
	Burst int `mapstructure:"burst" yaml:"burst"`

	// CacheTTL is how long annotations are cached. Zero caches forever,
	// a negative value disables the cache.
	// Default: 10m
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`

	// MaxAttempts bounds how many times a malformed model response is retried.
	// Default: 3
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider selects the annotation backend.
func WithProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithHost sets the service host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithModel sets the model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithFrameLexicon sets the frame lexicon file.
func WithFrameLexicon(path string) ConfigOption {
	return func(c *Config) {
		c.FrameLexicon = path
	}
}

// WithRateLimit caps backend calls per second.
func WithRateLimit(rps float64, burst int) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
		c.Burst = burst
	}
}

// WithCacheTTL sets the annotation cache lifetime.
func WithCacheTTL(ttl time.Duration) ConfigOption {
	return func(c *Config) {
		c.CacheTTL = ttl
	}
}

// DefaultConfig returns a Config using the lexical provider, with OpenAI
// settings pointing at a local OpenAI-compatible server.
func DefaultConfig() *Config {
	return &Config{
		Provider:    ProviderLexical,
		Host:        "http://localhost:11434/v1",
		Model:       "qwen2.5:3b",
		Burst:       1,
		CacheTTL:    10 * time.Minute,
		MaxAttempts: 3,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithProvider(ProviderOpenAI),
//	    WithHost("http://localhost:11434"),
//	    WithRateLimit(2, 1),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It lowercases the provider name and adds the /v1 suffix to the host if
// missing, which is required by most OpenAI-compatible APIs (Ollama,
// LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/") + "/v1"
	}
	if c.Burst < 1 {
		c.Burst = 1
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderLexical:
	case ProviderOpenAI:
		if c.Host == "" {
			return errors.New("ai config: Host is required")
		}
		if c.Model == "" {
			return errors.New("ai config: Model is required")
		}
	default:
		return fmt.Errorf("ai config: %w: %q", ErrUnknownProvider, c.Provider)
	}

	if c.RequestsPerSecond < 0 {
		return errors.New("ai config: RequestsPerSecond must not be negative")
	}
	if c.MaxAttempts < 1 {
		return errors.New("ai config: MaxAttempts must be at least 1")
	}
	return nil
}
