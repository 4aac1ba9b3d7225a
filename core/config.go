package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultTransportKind        = "soap"
	DefaultUserAgent            = "go-soap/1.0"
	DefaultTransportTimeout     = 30 * time.Second
	DefaultMaxResponseBodyBytes = int64(10 << 20)
)

type TransportConfig struct {
	Kind                 string        `koanf:"kind" mapstructure:"kind"`
	UserAgent            string        `koanf:"user_agent" mapstructure:"user_agent"`
	Timeout              time.Duration `koanf:"timeout" mapstructure:"timeout"`
	MaxResponseBodyBytes int64         `koanf:"max_response_body_bytes" mapstructure:"max_response_body_bytes"`
}

// AdapterConfig is the map handed to a TransportResolver factory.
func (c TransportConfig) AdapterConfig() map[string]any {
	return map[string]any{
		"user_agent":              c.UserAgent,
		"timeout":                 c.Timeout,
		"max_response_body_bytes": c.MaxResponseBodyBytes,
	}
}

type Config struct {
	ClientName  string          `koanf:"client_name" mapstructure:"client_name"`
	Transport   TransportConfig `koanf:"transport" mapstructure:"transport"`
	Poll        PollSettings    `koanf:"poll" mapstructure:"poll"`
	FailOnFault bool            `koanf:"fail_on_fault" mapstructure:"fail_on_fault"`
}

func DefaultConfig() Config {
	return Config{
		ClientName: "soap",
		Transport: TransportConfig{
			Kind:                 DefaultTransportKind,
			UserAgent:            DefaultUserAgent,
			Timeout:              DefaultTransportTimeout,
			MaxResponseBodyBytes: DefaultMaxResponseBodyBytes,
		},
		Poll: DefaultPollSettings(),
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ClientName) == "" {
		return fmt.Errorf("core: client_name is required")
	}
	if strings.TrimSpace(c.Transport.Kind) == "" {
		return fmt.Errorf("core: transport.kind is required")
	}
	if c.Transport.Timeout < 0 {
		return fmt.Errorf("core: transport.timeout must not be negative")
	}
	if c.Transport.MaxResponseBodyBytes < 0 {
		return fmt.Errorf("core: transport.max_response_body_bytes must not be negative")
	}
	return c.Poll.Validate()
}
