// Package config loads and validates the bridge configuration schema: the
// canister endpoint, timeout, root-key-fetch flag, and concurrency cap that
// the CLI collaborator hands to the bridge at startup (see spec §6).
package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config is the bridge configuration schema.
type Config struct {
	CanisterID            string        `yaml:"canister_id" json:"canister_id"`
	ICUrl                 string        `yaml:"ic_url" json:"ic_url"`
	Timeout               time.Duration `yaml:"-" json:"-"`
	FetchRootKey          bool          `yaml:"fetch_root_key" json:"fetch_root_key"`
	MaxConcurrentRequests uint32        `yaml:"max_concurrent_requests" json:"max_concurrent_requests"`

	Identity IdentityConfig `yaml:"identity,omitempty" json:"identity,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty" json:"logging,omitempty"`
}

// rawConfig mirrors Config with Timeout as a duration string ("30s"), the
// shape bridge config files are written in.
type rawConfig struct {
	CanisterID            string         `yaml:"canister_id" json:"canister_id"`
	ICUrl                 string         `yaml:"ic_url" json:"ic_url"`
	Timeout               string         `yaml:"timeout" json:"timeout"`
	FetchRootKey          bool           `yaml:"fetch_root_key" json:"fetch_root_key"`
	MaxConcurrentRequests uint32         `yaml:"max_concurrent_requests" json:"max_concurrent_requests"`
	Identity              IdentityConfig `yaml:"identity,omitempty" json:"identity,omitempty"`
	Logging               LoggingConfig  `yaml:"logging,omitempty" json:"logging,omitempty"`
}

func (c *Config) fromRaw(raw rawConfig) error {
	c.CanisterID = raw.CanisterID
	c.ICUrl = raw.ICUrl
	c.FetchRootKey = raw.FetchRootKey
	c.MaxConcurrentRequests = raw.MaxConcurrentRequests
	c.Identity = raw.Identity
	c.Logging = raw.Logging

	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("parsing timeout %q: %w", raw.Timeout, err)
		}
		c.Timeout = d
	}
	return nil
}

// UnmarshalJSON decodes the duration-string timeout field into Timeout,
// used for the hujson-tolerant config format.
func (c *Config) UnmarshalJSON(data []byte) error {
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return c.fromRaw(raw)
}

// UnmarshalYAML decodes the duration-string timeout field into Timeout.
func (c *Config) UnmarshalYAML(unmarshal func(any) error) error {
	var raw rawConfig
	if err := unmarshal(&raw); err != nil {
		return err
	}
	return c.fromRaw(raw)
}

// MarshalYAML encodes Timeout back into its duration-string form.
func (c Config) MarshalYAML() (any, error) {
	return rawConfig{
		CanisterID:            c.CanisterID,
		ICUrl:                 c.ICUrl,
		Timeout:               c.Timeout.String(),
		FetchRootKey:          c.FetchRootKey,
		MaxConcurrentRequests: c.MaxConcurrentRequests,
		Identity:              c.Identity,
		Logging:               c.Logging,
	}, nil
}

// IdentityConfig selects which identity the bridge signs requests with.
type IdentityConfig struct {
	// PemPath, when set, is read and parsed as a secp256k1 or ed25519
	// identity (see internal/identity). When empty, the bridge probes the
	// developer toolchain's default identity, falling back to anonymous.
	PemPath string `yaml:"pem_path,omitempty"`
}

// LoggingConfig configures the ambient structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug|info|warn|error, default info
	Format string `yaml:"format,omitempty"` // json|text, default json
	File   string `yaml:"file,omitempty"`   // rotating file sink path, empty disables
}

// SetDefaults applies the documented defaults for unset fields.
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxConcurrentRequests == 0 {
		c.MaxConcurrentRequests = 16
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// IsLocal reports whether the configured IC URL is a local replica endpoint
// rather than a production boundary node. Any http:// URL counts as local;
// the host is not examined.
func (c *Config) IsLocal() bool {
	return len(c.ICUrl) >= 7 && c.ICUrl[:7] == "http://"
}
