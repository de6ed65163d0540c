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

package index

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/docloader/core"
)

// Backend names a remote index implementation.
type Backend string

const (
	BackendMeilisearch   Backend = "meilisearch"
	BackendElasticsearch Backend = "elasticsearch"
)

// Config holds the connection settings for a remote index.
type Config struct {
	// Backend selects the client implementation.
	// Default: meilisearch
	Backend Backend

	// Host is a bare host name or a full base URL.
	// A bare host is combined with Port as http://host:port.
	// Example: "localhost", "https://search.example.com"
	Host string

	// Port is used when Host carries no scheme.
	// Default: 7700
	Port int

	// APIKey is the opaque credential sent with every request.
	APIKey string

	// RequestTimeout bounds every single HTTP exchange.
	// Default: 30s
	RequestTimeout time.Duration

	// MaxRetries is the number of transport-level retries for retryable
	// responses (429, 5xx) and connection errors.
	// Default: 2
	MaxRetries int

	// RetryWaitMin and RetryWaitMax bound the backoff between transport retries.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// ConnectAttempts is how many times the initial probe is tried.
	// Default: 3
	ConnectAttempts int

	// ConnectBackoff is the base delay between probe attempts; it doubles
	// after each failure.
	// Default: 500ms
	ConnectBackoff time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBackend selects the backend.
func WithBackend(b Backend) ConfigOption {
	return func(c *Config) {
		c.Backend = b
	}
}

// WithHost sets the host name or base URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithPort sets the port used with a bare host.
func WithPort(port int) ConfigOption {
	return func(c *Config) {
		c.Port = port
	}
}

// WithAPIKey sets the credential.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithRequestTimeout sets the per-request timeout.
func WithRequestTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.RequestTimeout = d
	}
}

// WithMaxRetries sets the transport retry count.
func WithMaxRetries(n int) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = n
	}
}

// WithRetryWait sets the transport retry backoff bounds.
func WithRetryWait(min, max time.Duration) ConfigOption {
	return func(c *Config) {
		c.RetryWaitMin = min
		c.RetryWaitMax = max
	}
}

// WithConnectAttempts sets how often the initial probe is tried.
func WithConnectAttempts(n int) ConfigOption {
	return func(c *Config) {
		c.ConnectAttempts = n
	}
}

// WithConnectBackoff sets the base delay between probe attempts.
func WithConnectBackoff(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.ConnectBackoff = d
	}
}

// DefaultConfig returns a Config for a local Meilisearch instance.
func DefaultConfig() *Config {
	return &Config{
		Backend:         BackendMeilisearch,
		Host:            "localhost",
		Port:            7700,
		RequestTimeout:  30 * time.Second,
		MaxRetries:      2,
		RetryWaitMin:    100 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		ConnectAttempts: 3,
		ConnectBackoff:  500 * time.Millisecond,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize trims whitespace and trailing slashes and lowercases the backend.
func (c *Config) Normalize() {
	c.Host = strings.TrimRight(strings.TrimSpace(c.Host), "/")
	c.Backend = Backend(strings.ToLower(strings.TrimSpace(string(c.Backend))))
	if c.Backend == "" {
		c.Backend = BackendMeilisearch
	}
}

// URL returns the base URL of the remote index. A host without a scheme is
// combined with the port as http://host:port.
func (c *Config) URL() string {
	if strings.Contains(c.Host, "://") {
		return c.Host
	}
	return "http://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Backend {
	case BackendMeilisearch, BackendElasticsearch:
	default:
		return fmt.Errorf("%w: %w %q", core.ErrConfig, ErrUnknownBackend, c.Backend)
	}
	if c.Host == "" {
		return fmt.Errorf("%w: host is required", core.ErrConfig)
	}
	if !strings.Contains(c.Host, "://") && (c.Port < 1 || c.Port > 65535) {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d", core.ErrConfig, c.Port)
	}
	u, err := url.Parse(c.URL())
	if err != nil {
		return fmt.Errorf("%w: malformed address: %w", core.ErrConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", core.ErrConfig, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: address %q has no host", core.ErrConfig, c.URL())
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive", core.ErrConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries cannot be negative", core.ErrConfig)
	}
	if c.ConnectAttempts < 1 {
		return fmt.Errorf("%w: connect attempts must be at least 1", core.ErrConfig)
	}
	return nil
}
