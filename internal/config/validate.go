package config

import (
	"strings"

	"github.com/icarus-mcp/icarus-bridge/internal/bridgeerr"
	"github.com/icarus-mcp/icarus-bridge/internal/ids"
)

// Validate checks the bridge configuration for errors, returning a
// bridgeerr.ValidationErrors slice if any field is invalid.
func Validate(c *Config) error {
	var errs bridgeerr.ValidationErrors

	if c.CanisterID == "" {
		errs = append(errs, bridgeerr.NewValidationError("canister_id", "is required"))
	} else if _, err := ids.ParseCanisterID(c.CanisterID); err != nil {
		errs = append(errs, bridgeerr.NewValidationError("canister_id", err.Error()))
	}

	if c.ICUrl == "" {
		errs = append(errs, bridgeerr.NewValidationError("ic_url", "is required"))
	} else if !strings.HasPrefix(c.ICUrl, "http://") && !strings.HasPrefix(c.ICUrl, "https://") {
		errs = append(errs, bridgeerr.NewValidationError("ic_url", "must start with http:// or https://"))
	}

	if c.Timeout <= 0 {
		errs = append(errs, bridgeerr.NewValidationError("timeout", "must be a positive duration"))
	}

	if c.MaxConcurrentRequests == 0 {
		errs = append(errs, bridgeerr.NewValidationError("max_concurrent_requests", "must be greater than zero"))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, bridgeerr.NewValidationError("logging.level", "must be debug, info, warn, or error"))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		errs = append(errs, bridgeerr.NewValidationError("logging.format", "must be json or text"))
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
