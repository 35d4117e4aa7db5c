package stratus

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// Default connection settings.
const (
	DefaultEndpoint = "https://vip.creatis.insa-lyon.fr/rest"
	defaultRefresh  = 30 * time.Second
	defaultFinish   = 5 * time.Minute
)

// Config is a serialisable representation of the connection settings. The
// zero value is usable; unset fields inherit the package defaults.
type Config struct {
	// Endpoint is the platform REST base URL.
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	// Certificate is an optional path to a CA bundle in PEM format trusted
	// in addition to the system roots.
	Certificate string `json:"certificate,omitempty" yaml:"certificate,omitempty"`
	// RemoteBase is the platform directory generated session directories
	// live under.
	RemoteBase string `json:"remoteBase,omitempty" yaml:"remoteBase,omitempty"`
	// Transfers bounds the worker pool used by bulk file transfers.
	Transfers int `json:"transfers,omitempty" yaml:"transfers,omitempty"`
	// Refresh is the default monitoring cadence as a Go duration literal,
	// e.g. "30s".
	Refresh string `json:"refresh,omitempty" yaml:"refresh,omitempty"`
	// FinishTimeout bounds how long Finish waits for remote data to
	// disappear, as a Go duration literal.
	FinishTimeout string `json:"finishTimeout,omitempty" yaml:"finishTimeout,omitempty"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() *Config {
	return &Config{Endpoint: DefaultEndpoint}
}

// LoadConfig reads a YAML config from an afs URL or local path.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %v: %w", URL, err)
	}
	config := DefaultConfig()
	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", URL, err)
	}
	if err = config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", URL, err)
	}
	return config, nil
}

// Validate reports the first invalid setting or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint was empty")
	}
	if c.Transfers < 0 {
		return fmt.Errorf("transfers must not be negative")
	}
	if c.Refresh != "" {
		if _, err := time.ParseDuration(c.Refresh); err != nil {
			return fmt.Errorf("invalid refresh: %w", err)
		}
	}
	if c.FinishTimeout != "" {
		if _, err := time.ParseDuration(c.FinishTimeout); err != nil {
			return fmt.Errorf("invalid finishTimeout: %w", err)
		}
	}
	return nil
}

// RefreshInterval returns the monitoring cadence, falling back to the
// package default when unset.
func (c *Config) RefreshInterval() time.Duration {
	if c == nil || c.Refresh == "" {
		return defaultRefresh
	}
	if parsed, err := time.ParseDuration(c.Refresh); err == nil {
		return parsed
	}
	return defaultRefresh
}

// FinishDeadline returns how long Finish waits for remote data to
// disappear, falling back to the package default when unset.
func (c *Config) FinishDeadline() time.Duration {
	if c == nil || c.FinishTimeout == "" {
		return defaultFinish
	}
	if parsed, err := time.ParseDuration(c.FinishTimeout); err == nil {
		return parsed
	}
	return defaultFinish
}
