// Package config holds the tunables of the client and loads them from the
// environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// BlockSize is the size of the blocks streamed bodies are read and
	// written in.
	BlockSize = 16 * 1024
	// MaxBufferedBody is the largest multipart body that gets buffered and
	// sent in one piece instead of being streamed.
	MaxBufferedBody = 112 * 1024
)

type Config struct {
	// Timeout bounds every socket read and write. Zero disables it.
	Timeout time.Duration `envconfig:"TIMEOUT" default:"300s"`
	// DNSTimeout bounds name resolution.
	DNSTimeout time.Duration `envconfig:"DNS_TIMEOUT" default:"60s"`

	FollowRedirect bool `envconfig:"FOLLOW_REDIRECT" default:"false"`
	MaxRedirects   int  `envconfig:"MAX_REDIRECTS" default:"5"`

	MaxConnsPerHost uint          `envconfig:"MAX_CONNS_PER_HOST" default:"100"`
	MaxIdlePerHost  uint          `envconfig:"MAX_IDLE_PER_HOST" default:"80"`
	IdleTimeout     time.Duration `envconfig:"IDLE_TIMEOUT" default:"90s"`

	UserAgent string `envconfig:"USER_AGENT"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Timeout:         300 * time.Second,
		DNSTimeout:      60 * time.Second,
		MaxRedirects:    5,
		MaxConnsPerHost: 100,
		MaxIdlePerHost:  80,
		IdleTimeout:     90 * time.Second,
	}
}

// FromEnv reads the configuration from environment variables named
// <PREFIX>_TIMEOUT, <PREFIX>_MAX_REDIRECTS and so on.
func FromEnv(prefix string) (Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("loading config from env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Timeout < 0:
		return fmt.Errorf("timeout must not be negative: %s", c.Timeout)
	case c.DNSTimeout < 0:
		return fmt.Errorf("dns timeout must not be negative: %s", c.DNSTimeout)
	case c.MaxRedirects < 0:
		return fmt.Errorf("max redirects must not be negative: %d", c.MaxRedirects)
	case c.MaxConnsPerHost == 0:
		return fmt.Errorf("max conns per host must be greater than zero")
	case c.MaxIdlePerHost > c.MaxConnsPerHost:
		return fmt.Errorf("max idle per host (%d) exceeds max conns per host (%d)", c.MaxIdlePerHost, c.MaxConnsPerHost)
	}
	return nil
}
