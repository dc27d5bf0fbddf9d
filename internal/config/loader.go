package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// Load reads, parses, defaults, and validates a bridge config file.
// YAML (.yaml/.yml) is parsed with gopkg.in/yaml.v3; anything else is
// parsed as HuJSON (JSON with comments and trailing commas tolerated),
// for hand-edited configs.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	default:
		std, err := hujson.Standardize(data)
		if err != nil {
			return nil, fmt.Errorf("parsing config JSON: %w", err)
		}
		if err := json.Unmarshal(std, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config JSON: %w", err)
		}
	}

	expandEnvVars(&cfg)
	cfg.SetDefaults()

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandEnvVars expands $VAR / ${VAR} references in string fields, the
// way the teacher's loader expands environment variables across its
// stack file before validation.
func expandEnvVars(c *Config) {
	c.CanisterID = os.ExpandEnv(c.CanisterID)
	c.ICUrl = os.ExpandEnv(c.ICUrl)
	c.Identity.PemPath = os.ExpandEnv(c.Identity.PemPath)
	c.Logging.File = os.ExpandEnv(c.Logging.File)
}
